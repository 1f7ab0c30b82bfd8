package engine

import (
	"time"

	"github.com/pkg/errors"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts the exact wire spelling of a side.
func ParseSide(s string) (Side, error) {
	side := Side(s)
	if !side.valid() {
		return "", errors.Wrapf(ErrInvalidArgument, "side (%s) must either be BUY or SELL", s)
	}
	return side, nil
}

func (s Side) valid() bool {
	return s == SideBuy || s == SideSell
}

// LimitOrder is a submission request.
type LimitOrder struct {
	Side     Side
	Price    int64 // integer price (ticks)
	Quantity int64
	PostOnly bool
}

// restingOrder sits in exactly one price level queue. Its side is not
// stored: a level only ever holds one side, given by its position relative
// to the best bid and ask.
type restingOrder struct {
	id        string
	price     int64
	quantity  int64 // remaining, reduced in place by partial fills
	createdAt time.Time
}

package engine

import (
	"time"

	"github.com/rs/xid"
)

// Trade is one execution between an incoming (taker) order and one resting
// (maker) order. A taker that sweeps several makers produces one Trade per
// maker.
type Trade struct {
	ID           string    `json:"id"`
	Price        int64     `json:"price"`
	Quantity     int64     `json:"quantity"`
	TakerSide    Side      `json:"takerSide"`
	TakerOrderID string    `json:"takerOrderId"`
	MakerOrderID string    `json:"makerOrderId"`
	CreatedAt    time.Time `json:"tradedAt"`
}

func newTrade(price, qty int64, taker *Status, makerID string, t time.Time) Trade {
	return Trade{
		ID:           xid.NewWithTime(t).String(),
		Price:        price,
		Quantity:     qty,
		TakerSide:    taker.side,
		TakerOrderID: taker.id,
		MakerOrderID: makerID,
		CreatedAt:    t,
	}
}

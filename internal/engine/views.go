package engine

import (
	"time"

	"github.com/pkg/errors"
)

// DepthEntry is one resting order as seen in the full book.
type DepthEntry struct {
	Price           int64  `json:"price"`
	Quantity        int64  `json:"quantity"`
	PositionAtPrice int    `json:"positionAtPrice"` // 1-based place in the level's queue
	Side            Side   `json:"side"`
	ID              string `json:"id"`
}

type Depth struct {
	Asks []DepthEntry `json:"Asks"`
	Bids []DepthEntry `json:"Bids"`
}

type AggregatedLevel struct {
	Price         int64 `json:"price"`
	TotalQuantity int64 `json:"quantity"`
	OrderCount    int   `json:"orderCount"`
	Side          Side  `json:"side"`
}

type AggregatedDepth struct {
	Asks []AggregatedLevel `json:"Asks"`
	Bids []AggregatedLevel `json:"Bids"`
}

// MarketSummary describes the top of the book. Nil fields mean there is no
// such value yet. Volumes count the best level only.
type MarketSummary struct {
	Ask             *int64     `json:"ask"`
	Bid             *int64     `json:"bid"`
	LastTradedPrice *int64     `json:"lastTradedPrice"`
	LastTradeTime   *time.Time `json:"lastTradeTime"`
	AskVolume       *int64     `json:"askVolume"`
	BidVolume       *int64     `json:"bidVolume"`
}

// Equal reports whether both summaries hold the same values.
func (s MarketSummary) Equal(other MarketSummary) bool {
	return eqInt(s.Ask, other.Ask) &&
		eqInt(s.Bid, other.Bid) &&
		eqInt(s.LastTradedPrice, other.LastTradedPrice) &&
		eqInt(s.AskVolume, other.AskVolume) &&
		eqInt(s.BidVolume, other.BidVolume) &&
		eqTime(s.LastTradeTime, other.LastTradeTime)
}

func eqInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// FullDepth lists every resting order, asks from the best ask upwards and
// bids from the best bid downwards, FIFO within a level.
func (ob *OrderBook) FullDepth() Depth {
	return Depth{
		Asks: ob.depthSide(ob.ask, 1, SideSell),
		Bids: ob.depthSide(ob.bid, -1, SideBuy),
	}
}

func (ob *OrderBook) depthSide(best int64, dir int, side Side) []DepthEntry {
	out := []DepthEntry{}
	if best == 0 {
		return out
	}
	for p := ob.levels.nextOccupiedPrice(best, dir); p != 0; p = ob.levels.nextOccupiedPrice(p+int64(dir), dir) {
		for i, o := range ob.levels.queue(p) {
			out = append(out, DepthEntry{
				Price:           p,
				Quantity:        o.quantity,
				PositionAtPrice: i + 1,
				Side:            side,
				ID:              o.id,
			})
		}
	}
	return out
}

// AggregatedDepth collapses FullDepth into one row per price, keeping the
// best-to-worst order of each side.
func (ob *OrderBook) AggregatedDepth() AggregatedDepth {
	full := ob.FullDepth()
	return AggregatedDepth{
		Asks: aggregate(full.Asks),
		Bids: aggregate(full.Bids),
	}
}

func aggregate(entries []DepthEntry) []AggregatedLevel {
	out := []AggregatedLevel{}
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Price == e.Price {
			out[n-1].TotalQuantity += e.Quantity
			out[n-1].OrderCount++
			continue
		}
		out = append(out, AggregatedLevel{
			Price:         e.Price,
			TotalQuantity: e.Quantity,
			OrderCount:    1,
			Side:          e.Side,
		})
	}
	return out
}

func (ob *OrderBook) MarketSummary() MarketSummary {
	var s MarketSummary
	if ob.ask != 0 {
		ask, vol := ob.ask, ob.levels.volume(ob.ask)
		s.Ask, s.AskVolume = &ask, &vol
	}
	if ob.bid != 0 {
		bid, vol := ob.bid, ob.levels.volume(ob.bid)
		s.Bid, s.BidVolume = &bid, &vol
	}
	if n := len(ob.trades); n > 0 {
		last := ob.trades[n-1]
		price, at := last.Price, last.CreatedAt
		s.LastTradedPrice, s.LastTradeTime = &price, &at
	}
	return s
}

func (ob *OrderBook) Status(id string) (StatusView, error) {
	st, ok := ob.statuses[id]
	if !ok {
		return StatusView{}, errors.Wrapf(ErrNotFound, "no record found for provided id (%s)", id)
	}
	return st.View(), nil
}

// RecentTrades returns up to count of the latest trades, newest first.
func (ob *OrderBook) RecentTrades(count int) ([]Trade, error) {
	if count < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "count (%d) must be a positive integer", count)
	}
	n := len(ob.trades)
	if count > n {
		count = n
	}
	out := make([]Trade, 0, count)
	for i := n - 1; i >= n-count; i-- {
		out = append(out, ob.trades[i])
	}
	return out, nil
}

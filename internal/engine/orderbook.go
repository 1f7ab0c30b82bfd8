package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// OrderBook matches limit orders for one instrument under price-time
// priority. Legal prices are the integers in [1, pricePoints].
//
// OrderBook is not safe for concurrent use. Engine owns one and serialises
// every call through its command loop.
type OrderBook struct {
	pricePoints int64
	levels      *ledger

	// best prices; 0 means no resting liquidity on that side
	ask int64
	bid int64

	trades   []Trade
	statuses map[string]*Status

	clock    func() time.Time
	newID    func() string
	lastTime time.Time
}

type Option func(*options)

type options struct {
	clock func() time.Time
	newID func() string
	index PriceIndex
}

// WithClock sets the time source for statuses and trades.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDGenerator sets the order id source. Ids must be unique.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

func WithPriceIndex(kind PriceIndex) Option {
	return func(o *options) { o.index = kind }
}

func NewOrderBook(pricePoints int64, opts ...Option) (*OrderBook, error) {
	if pricePoints < 1 {
		return nil, errors.Wrapf(ErrInvalidArgument, "pricePoints (%d) must be at least 1", pricePoints)
	}
	o := options{
		clock: time.Now,
		newID: uuid.NewString,
		index: PriceIndexScan,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := ParsePriceIndex(string(o.index)); err != nil {
		return nil, err
	}
	return &OrderBook{
		pricePoints: pricePoints,
		levels:      newLedger(pricePoints, o.index),
		statuses:    make(map[string]*Status),
		clock:       o.clock,
		newID:       o.newID,
	}, nil
}

func (ob *OrderBook) PricePoints() int64 { return ob.pricePoints }

// BestAsk returns the lowest resting sell price.
func (ob *OrderBook) BestAsk() (int64, bool) { return ob.ask, ob.ask != 0 }

// BestBid returns the highest resting buy price.
func (ob *OrderBook) BestBid() (int64, bool) { return ob.bid, ob.bid != 0 }

// SubmitLimitOrder validates, registers and executes a limit order and
// returns its id.
//
// Malformed input is rejected with ErrInvalidArgument before anything is
// recorded. An order priced above the book's range, or a post-only order
// that would cross, is still registered and comes back Cancelled with a
// reason; those are not errors.
func (ob *OrderBook) SubmitLimitOrder(o LimitOrder) (string, error) {
	if !o.Side.valid() {
		return "", errors.Wrapf(ErrInvalidArgument, "side (%s) must either be BUY or SELL", o.Side)
	}
	if o.Price < 1 {
		return "", errors.Wrapf(ErrInvalidArgument, "price (%d) must be a positive integer", o.Price)
	}
	if o.Quantity < 1 {
		return "", errors.Wrapf(ErrInvalidArgument, "quantity (%d) must be a positive integer", o.Quantity)
	}

	id := ob.newID()
	if _, dup := ob.statuses[id]; dup {
		return "", errors.Errorf("order id %s already issued", id)
	}
	t := ob.now()
	st := newStatus(id, o, t)
	ob.statuses[id] = st

	if o.Price > ob.pricePoints {
		must(st.cancel(t, ReasonInvalidPrice))
		return id, nil
	}

	// The opposite best price is the one an incoming order can cross.
	cursor, dir := &ob.ask, 1
	crosses := func(best int64) bool { return o.Price >= best }
	if o.Side == SideSell {
		cursor, dir = &ob.bid, -1
		crosses = func(best int64) bool { return o.Price <= best }
	}

	if o.PostOnly && *cursor != 0 && crosses(*cursor) {
		must(st.cancel(t, ReasonPostOnly))
		return id, nil
	}

	remaining := o.Quantity
	for *cursor != 0 && crosses(*cursor) {
		remaining = ob.match(st, *cursor, remaining, t)
		*cursor = ob.levels.nextOccupiedPrice(*cursor, dir)
		if remaining == 0 {
			return id, nil
		}
	}

	ob.place(st, remaining, t)
	return id, nil
}

// match fills the incoming order against the head of the queue at price and
// returns the incoming quantity still unfilled.
func (ob *OrderBook) match(taker *Status, price, remaining int64, t time.Time) int64 {
	head := ob.levels.peekFront(price)
	maker := ob.statuses[head.id]

	qty := remaining
	if remaining >= head.quantity {
		qty = head.quantity
	}

	ob.trades = append(ob.trades, newTrade(price, qty, taker, head.id, t))
	must(maker.fillAsMaker(t, qty))
	must(taker.fillAsTaker(t, qty))

	if qty == head.quantity {
		ob.levels.popFront(price)
	} else {
		head.quantity -= qty
	}
	return remaining - qty
}

func (ob *OrderBook) place(st *Status, qty int64, t time.Time) {
	price := st.price
	switch st.side {
	case SideBuy:
		if ob.bid == 0 || price > ob.bid {
			ob.bid = price
		}
	case SideSell:
		if ob.ask == 0 || price < ob.ask {
			ob.ask = price
		}
	}
	ob.levels.pushBack(&restingOrder{
		id:        st.id,
		price:     price,
		quantity:  qty,
		createdAt: t,
	})
	must(st.markPlaced(t))
}

// now reads the clock and never goes backwards, so status updates cannot be
// stale even if the wall clock steps back.
func (ob *OrderBook) now() time.Time {
	t := ob.clock()
	if t.Before(ob.lastTime) {
		t = ob.lastTime
	}
	ob.lastTime = t
	return t
}

// tradesSince returns a copy of the trades appended after the first n.
func (ob *OrderBook) tradesSince(n int) []Trade {
	if n >= len(ob.trades) {
		return nil
	}
	out := make([]Trade, len(ob.trades)-n)
	copy(out, ob.trades[n:])
	return out
}

package engine

import (
	"github.com/huandu/skiplist"
	"github.com/pkg/errors"
)

// PriceIndex selects how the ledger finds the next occupied price level.
type PriceIndex string

const (
	// PriceIndexScan walks price by price. Cost is proportional to the gap
	// between the current best price and the next occupied level, bounded by
	// the number of price points.
	PriceIndexScan PriceIndex = "scan"
	// PriceIndexSkiplist keeps occupied prices in skiplists and answers in
	// logarithmic time. Useful for wide price ranges with sparse books.
	PriceIndexSkiplist PriceIndex = "skiplist"
)

func ParsePriceIndex(s string) (PriceIndex, error) {
	switch k := PriceIndex(s); k {
	case PriceIndexScan, PriceIndexSkiplist:
		return k, nil
	}
	return "", errors.Wrapf(ErrInvalidArgument, "price index (%s) must be %s or %s", s, PriceIndexScan, PriceIndexSkiplist)
}

// priceLevel holds FIFO orders for one price, oldest first.
type priceLevel struct {
	orders []*restingOrder
}

// ledger is a fixed array of price levels indexed by price. Every legal
// price in [1, pricePoints] has a level from construction onwards; slot 0
// is unused. No price is ever 0, so 0 doubles as "no price".
type ledger struct {
	pricePoints int64
	levels      []priceLevel
	index       occupancyIndex // nil when scanning
}

type occupancyIndex interface {
	add(price int64)
	remove(price int64)
	next(from int64, dir int) int64
}

func newLedger(pricePoints int64, kind PriceIndex) *ledger {
	l := &ledger{
		pricePoints: pricePoints,
		levels:      make([]priceLevel, pricePoints+1),
	}
	if kind == PriceIndexSkiplist {
		l.index = newSkiplistIndex()
	}
	return l
}

func (l *ledger) inRange(price int64) bool {
	return price >= 1 && price <= l.pricePoints
}

func (l *ledger) isEmpty(price int64) bool {
	return len(l.levels[price].orders) == 0
}

func (l *ledger) peekFront(price int64) *restingOrder {
	q := l.levels[price].orders
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (l *ledger) popFront(price int64) *restingOrder {
	lvl := &l.levels[price]
	if len(lvl.orders) == 0 {
		return nil
	}
	o := lvl.orders[0]
	lvl.orders[0] = nil
	lvl.orders = lvl.orders[1:]
	if len(lvl.orders) == 0 {
		// drop the backing array so an emptied level holds no memory
		lvl.orders = nil
		if l.index != nil {
			l.index.remove(price)
		}
	}
	return o
}

func (l *ledger) pushBack(o *restingOrder) {
	lvl := &l.levels[o.price]
	if len(lvl.orders) == 0 && l.index != nil {
		l.index.add(o.price)
	}
	lvl.orders = append(lvl.orders, o)
}

// queue returns the level's orders in FIFO order. The slice must not be
// modified.
func (l *ledger) queue(price int64) []*restingOrder {
	return l.levels[price].orders
}

func (l *ledger) volume(price int64) int64 {
	var total int64
	for _, o := range l.levels[price].orders {
		total += o.quantity
	}
	return total
}

// nextOccupiedPrice returns the first price with resting orders, starting at
// from and moving by dir (+1 up, -1 down). It returns 0 once the walk leaves
// [1, pricePoints].
func (l *ledger) nextOccupiedPrice(from int64, dir int) int64 {
	if l.index != nil {
		if !l.inRange(from) {
			return 0
		}
		return l.index.next(from, dir)
	}
	step := int64(dir)
	for p := from; l.inRange(p); p += step {
		if !l.isEmpty(p) {
			return p
		}
	}
	return 0
}

// skiplistIndex mirrors the set of occupied prices in two skiplists, one per
// scan direction, so both directions are a single Find.
type skiplistIndex struct {
	asc  *skiplist.SkipList
	desc *skiplist.SkipList
}

func newSkiplistIndex() *skiplistIndex {
	return &skiplistIndex{
		asc:  skiplist.New(skiplist.Int64),
		desc: skiplist.New(skiplist.Int64Desc),
	}
}

func (s *skiplistIndex) add(price int64) {
	s.asc.Set(price, struct{}{})
	s.desc.Set(price, struct{}{})
}

func (s *skiplistIndex) remove(price int64) {
	s.asc.Remove(price)
	s.desc.Remove(price)
}

func (s *skiplistIndex) next(from int64, dir int) int64 {
	list := s.asc
	if dir < 0 {
		list = s.desc
	}
	el := list.Find(from)
	if el == nil {
		return 0
	}
	return el.Key().(int64)
}

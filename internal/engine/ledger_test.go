package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forEachIndex(t *testing.T, fn func(t *testing.T, kind PriceIndex)) {
	for _, kind := range []PriceIndex{PriceIndexScan, PriceIndexSkiplist} {
		t.Run(string(kind), func(t *testing.T) { fn(t, kind) })
	}
}

func TestLedgerFIFO(t *testing.T) {
	forEachIndex(t, func(t *testing.T, kind PriceIndex) {
		l := newLedger(10, kind)
		assert.True(t, l.isEmpty(4))
		assert.Nil(t, l.peekFront(4))
		assert.Nil(t, l.popFront(4))

		l.pushBack(&restingOrder{id: "a", price: 4, quantity: 1})
		l.pushBack(&restingOrder{id: "b", price: 4, quantity: 2})
		l.pushBack(&restingOrder{id: "c", price: 4, quantity: 3})

		assert.False(t, l.isEmpty(4))
		assert.Equal(t, int64(6), l.volume(4))
		assert.Equal(t, "a", l.peekFront(4).id)
		require.Len(t, l.queue(4), 3)

		assert.Equal(t, "a", l.popFront(4).id)
		assert.Equal(t, "b", l.popFront(4).id)
		assert.Equal(t, "c", l.peekFront(4).id)
		assert.Equal(t, "c", l.popFront(4).id)
		assert.True(t, l.isEmpty(4))
		assert.Equal(t, int64(0), l.volume(4))
	})
}

func TestNextOccupiedPrice(t *testing.T) {
	forEachIndex(t, func(t *testing.T, kind PriceIndex) {
		l := newLedger(10, kind)
		assert.Equal(t, int64(0), l.nextOccupiedPrice(1, 1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(10, -1))

		l.pushBack(&restingOrder{id: "a", price: 3, quantity: 1})
		l.pushBack(&restingOrder{id: "b", price: 7, quantity: 1})

		assert.Equal(t, int64(3), l.nextOccupiedPrice(1, 1))
		assert.Equal(t, int64(3), l.nextOccupiedPrice(3, 1))
		assert.Equal(t, int64(7), l.nextOccupiedPrice(4, 1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(8, 1))

		assert.Equal(t, int64(7), l.nextOccupiedPrice(10, -1))
		assert.Equal(t, int64(7), l.nextOccupiedPrice(7, -1))
		assert.Equal(t, int64(3), l.nextOccupiedPrice(6, -1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(2, -1))

		// out of range starts never find anything
		assert.Equal(t, int64(0), l.nextOccupiedPrice(0, 1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(11, -1))

		l.popFront(3)
		assert.Equal(t, int64(7), l.nextOccupiedPrice(1, 1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(6, -1))
	})
}

func TestNextOccupiedPriceEdges(t *testing.T) {
	forEachIndex(t, func(t *testing.T, kind PriceIndex) {
		l := newLedger(1, kind)
		assert.Equal(t, int64(0), l.nextOccupiedPrice(1, 1))

		l.pushBack(&restingOrder{id: "a", price: 1, quantity: 1})
		assert.Equal(t, int64(1), l.nextOccupiedPrice(1, 1))
		assert.Equal(t, int64(1), l.nextOccupiedPrice(1, -1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(2, 1))
		assert.Equal(t, int64(0), l.nextOccupiedPrice(0, -1))
	})
}

func TestParsePriceIndex(t *testing.T) {
	k, err := ParsePriceIndex("skiplist")
	require.NoError(t, err)
	assert.Equal(t, PriceIndexSkiplist, k)

	_, err = ParsePriceIndex("btree")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

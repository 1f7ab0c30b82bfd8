package engine

import (
	"context"
	"errors"
	"sync"
)

// TradeSink receives the trades of each submission after the book has
// applied it. A sink error never affects book state.
type TradeSink interface {
	PublishTrades(ctx context.Context, trades ...Trade) error
}

type MemoryTradeSink struct {
	mu     sync.RWMutex
	trades []Trade
}

func NewMemoryTradeSink() *MemoryTradeSink {
	return &MemoryTradeSink{
		trades: make([]Trade, 0),
	}
}

func (m *MemoryTradeSink) PublishTrades(_ context.Context, trades ...Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trades...)
	return nil
}

func (m *MemoryTradeSink) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trades)
}

// Trades returns a copy of everything published so far.
func (m *MemoryTradeSink) Trades() []Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Trade, len(m.trades))
	copy(out, m.trades)
	return out
}

type DiscardTradeSink struct{}

func NewDiscardTradeSink() *DiscardTradeSink {
	return &DiscardTradeSink{}
}

func (DiscardTradeSink) PublishTrades(context.Context, ...Trade) error {
	return nil
}

// MultiTradeSink fans trades out to every sink and joins their errors.
type MultiTradeSink []TradeSink

func (m MultiTradeSink) PublishTrades(ctx context.Context, trades ...Trade) error {
	var errs []error
	for _, s := range m {
		if err := s.PublishTrades(ctx, trades...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

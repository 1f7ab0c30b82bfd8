package marketdata

import (
	"sync"
	"time"

	"github.com/michailmelonas/order-book-app/internal/engine"
)

// SummaryCache stores the latest market summary in memory.
type SummaryCache struct {
	mu        sync.RWMutex
	summary   engine.MarketSummary
	sampledAt time.Time
	ok        bool
}

func NewSummaryCache() *SummaryCache {
	return &SummaryCache{}
}

func (c *SummaryCache) Set(s engine.MarketSummary, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary, c.sampledAt, c.ok = s, at, true
}

// Get returns the cached summary and when it was sampled. ok is false until
// the first Set.
func (c *SummaryCache) Get() (engine.MarketSummary, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary, c.sampledAt, c.ok
}

package marketdata

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michailmelonas/order-book-app/internal/engine"
)

type SummarySource interface {
	MarketSummary(ctx context.Context) (engine.MarketSummary, error)
}

type SummaryPublisher interface {
	PublishSummary(ctx context.Context, s engine.MarketSummary) error
}

// StartUpdater periodically samples the market summary into cache and
// forwards it to pub whenever it differs from the previous sample. pub may
// be nil. It returns when ctx is done.
func StartUpdater(
	ctx context.Context,
	src SummarySource,
	cache *SummaryCache,
	pub SummaryPublisher,
	interval time.Duration,
	log logrus.FieldLogger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u := &updater{src: src, cache: cache, pub: pub, log: log.WithField("component", "marketdata")}
	u.refreshOnce(ctx)

	for {
		select {
		case <-ticker.C:
			u.refreshOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

type updater struct {
	src   SummarySource
	cache *SummaryCache
	pub   SummaryPublisher
	log   logrus.FieldLogger

	last    engine.MarketSummary
	hasLast bool
}

func (u *updater) refreshOnce(ctx context.Context) {
	s, err := u.src.MarketSummary(ctx)
	if err != nil {
		if ctx.Err() == nil {
			u.log.WithError(err).Warn("market summary update failed")
		}
		return
	}
	u.cache.Set(s, time.Now())

	if u.hasLast && u.last.Equal(s) {
		return
	}
	u.last, u.hasLast = s, true
	if u.pub == nil {
		return
	}
	if err := u.pub.PublishSummary(ctx, s); err != nil {
		u.log.WithError(err).Warn("publish market summary failed")
		// retry on the next tick
		u.hasLast = false
		return
	}
	u.log.Debug("market summary published")
}

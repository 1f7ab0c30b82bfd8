package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/michailmelonas/order-book-app/db"
	"github.com/michailmelonas/order-book-app/feed"
	"github.com/michailmelonas/order-book-app/internal/api"
	"github.com/michailmelonas/order-book-app/internal/config"
	"github.com/michailmelonas/order-book-app/internal/engine"
	"github.com/michailmelonas/order-book-app/internal/logging"
	"github.com/michailmelonas/order-book-app/marketdata"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	// 1) trade sinks
	var sinks engine.MultiTradeSink
	var summaries marketdata.SummaryPublisher

	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		journal := db.NewTradeJournal(pool)
		if err := journal.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, journal)
		log.Info("trade journal enabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := feed.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.SummaryTopic)
		defer func() {
			if err := pub.Close(); err != nil {
				log.WithError(err).Warn("close kafka publisher")
			}
		}()
		sinks = append(sinks, pub)
		summaries = pub
		log.WithField("brokers", cfg.Kafka.Brokers).Info("kafka feed enabled")
	}

	// 2) engine
	index, err := engine.ParsePriceIndex(cfg.Engine.PriceIndex)
	if err != nil {
		return err
	}
	book, err := engine.NewOrderBook(cfg.Engine.PricePoints, engine.WithPriceIndex(index))
	if err != nil {
		return err
	}
	eng := engine.NewEngine(book, cfg.Engine.CommandBuffer, sinks, log)

	// 3) router
	cache := marketdata.NewSummaryCache()
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(eng, cache, log, cfg.HTTP.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eng.Run(gctx)
		return nil
	})
	g.Go(func() error {
		// drains queued trades after the engine stops
		eng.RunPublisher(gctx)
		return nil
	})
	g.Go(func() error {
		marketdata.StartUpdater(gctx, eng, cache, summaries, cfg.MarketData.Interval, log)
		return nil
	})
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":         cfg.HTTP.Addr,
			"price_points": cfg.Engine.PricePoints,
			"price_index":  index,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

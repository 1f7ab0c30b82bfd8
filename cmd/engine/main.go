package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/michailmelonas/order-book-app/internal/engine"
)

// Replays a small order flow against an in-process book and prints the
// resulting views. Useful for eyeballing matching behaviour without the
// HTTP service.
func main() {
	pricePoints := flag.Int64("price-points", 1000, "number of legal prices")
	index := flag.String("index", "scan", "price index: scan or skiplist")
	flag.Parse()

	kind, err := engine.ParsePriceIndex(*index)
	if err != nil {
		logrus.WithError(err).Fatal("bad flag")
	}
	book, err := engine.NewOrderBook(*pricePoints, engine.WithPriceIndex(kind))
	if err != nil {
		logrus.WithError(err).Fatal("create order book")
	}

	// makers: a ladder of asks from 50 to 99 plus one far ask
	flow := []engine.LimitOrder{{Side: engine.SideSell, Price: 101, Quantity: 1}}
	for p := int64(50); p < 100; p++ {
		flow = append(flow, engine.LimitOrder{Side: engine.SideSell, Price: p, Quantity: 1})
	}
	flow = append(flow,
		engine.LimitOrder{Side: engine.SideBuy, Price: 40, Quantity: 5},
		// taker sweeps the ladder and rests the remainder at 100
		engine.LimitOrder{Side: engine.SideBuy, Price: 100, Quantity: 100},
		// post-only that would cross is cancelled
		engine.LimitOrder{Side: engine.SideBuy, Price: 101, Quantity: 1, PostOnly: true},
		// beyond the price range is cancelled
		engine.LimitOrder{Side: engine.SideSell, Price: *pricePoints + 1, Quantity: 1},
	)

	var ids []string
	for _, o := range flow {
		id, err := book.SubmitLimitOrder(o)
		if err != nil {
			logrus.WithError(err).Fatal("submit")
		}
		ids = append(ids, id)
	}

	trades, err := book.RecentTrades(5)
	if err != nil {
		logrus.WithError(err).Fatal("recent trades")
	}
	var statuses []engine.StatusView
	for _, id := range ids[len(ids)-3:] {
		st, err := book.Status(id)
		if err != nil {
			logrus.WithError(err).Fatal("status")
		}
		statuses = append(statuses, st)
	}

	show("aggregated depth", book.AggregatedDepth())
	show("market summary", book.MarketSummary())
	show("recent trades", trades)
	show("last statuses", statuses)
}

func show(title string, v any) {
	fmt.Printf("== %s\n", title)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logrus.WithError(err).Fatal("encode")
	}
}

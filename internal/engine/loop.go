// internal/engine/loop.go
package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultPublishTimeout = 2 * time.Second

// Engine owns an OrderBook and applies every command from a single
// goroutine, so the book sees one operation at a time and reads never
// observe a half-applied submission.
//
// Trades leave the loop through a queue drained by RunPublisher, so a slow
// sink never holds up matching. Run and RunPublisher must both be running.
type Engine struct {
	book   *OrderBook
	cmds   chan Command
	trades chan []Trade
	done   chan struct{}

	sink           TradeSink
	publishTimeout time.Duration
	log            logrus.FieldLogger
}

// NewEngine wraps book. buffer sizes both the command queue and the trade
// queue. sink may be nil, in which case trades are only kept in the book's
// own log.
func NewEngine(book *OrderBook, buffer int, sink TradeSink, log logrus.FieldLogger) *Engine {
	if sink == nil {
		sink = NewDiscardTradeSink()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		book:           book,
		cmds:           make(chan Command, buffer),
		trades:         make(chan []Trade, buffer),
		done:           make(chan struct{}),
		sink:           sink,
		publishTimeout: defaultPublishTimeout,
		log:            log.WithField("component", "engine"),
	}
}

// Run processes commands until ctx is cancelled. Calls made after Run
// returns fail with ErrEngineClosed.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	defer close(e.trades)

	for {
		select {
		case cmd := <-e.cmds:
			e.handle(ctx, cmd)
		case <-ctx.Done():
			return
		}
	}
}

// RunPublisher hands queued trades to the sink until Run has returned and
// the queue is empty. Trades still queued at shutdown are flushed with a
// context that is detached from ctx.
func (e *Engine) RunPublisher(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for trades := range e.trades {
		e.publish(ctx, trades)
	}
}

func (e *Engine) handle(ctx context.Context, cmd Command) {
	if cmd.Ctx != nil {
		if err := cmd.Ctx.Err(); err != nil {
			// the caller gave up while the command was queued
			e.log.WithField("command", cmd.Type).WithError(err).Debug("command skipped")
			cmd.Resp <- result{nil, err}
			return
		}
	}

	switch cmd.Type {

	case CmdSubmit:
		// 1) match in memory
		before := len(e.book.trades)
		id, err := e.book.SubmitLimitOrder(*cmd.Order)

		// 2) answer the caller
		cmd.Resp <- result{id, err}

		if err != nil {
			e.log.WithError(err).Debug("order rejected")
			return
		}
		trades := e.book.tradesSince(before)
		e.log.WithFields(logrus.Fields{
			"order_id": id,
			"side":     cmd.Order.Side,
			"price":    cmd.Order.Price,
			"quantity": cmd.Order.Quantity,
			"trades":   len(trades),
		}).Debug("order processed")

		// 3) queue trades for the publisher; the book is already final
		if len(trades) > 0 {
			select {
			case e.trades <- trades:
			case <-ctx.Done():
				e.log.WithField("trades", len(trades)).Warn("engine stopped before trades were queued")
			}
		}

	case CmdFullDepth:
		cmd.Resp <- result{e.book.FullDepth(), nil}

	case CmdAggregatedDepth:
		cmd.Resp <- result{e.book.AggregatedDepth(), nil}

	case CmdMarketSummary:
		cmd.Resp <- result{e.book.MarketSummary(), nil}

	case CmdStatus:
		v, err := e.book.Status(cmd.ID)
		cmd.Resp <- result{v, err}

	case CmdRecentTrades:
		trades, err := e.book.RecentTrades(cmd.Count)
		cmd.Resp <- result{trades, err}

	default:
		cmd.Resp <- result{nil, errors.Errorf("unknown command type %d", cmd.Type)}
	}
}

func (e *Engine) publish(ctx context.Context, trades []Trade) {
	pctx, cancel := context.WithTimeout(ctx, e.publishTimeout)
	defer cancel()
	if err := e.sink.PublishTrades(pctx, trades...); err != nil {
		e.log.WithError(err).WithField("trades", len(trades)).Error("publish trades failed")
	}
}

// do hands cmd to the loop and waits for its answer.
//
// A queued submission is always waited for: the loop either applies it or,
// if ctx expired first, skips it without touching the book. Reads may be
// abandoned.
func (e *Engine) do(ctx context.Context, cmd Command) (any, error) {
	cmd.Ctx = ctx
	cmd.Resp = make(chan result, 1)

	select {
	case e.cmds <- cmd:
	case <-e.done:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var abandon <-chan struct{}
	if cmd.Type != CmdSubmit {
		abandon = ctx.Done()
	}

	select {
	case r := <-cmd.Resp:
		return r.value, r.err
	case <-e.done:
		// the loop may have answered just before stopping
		select {
		case r := <-cmd.Resp:
			return r.value, r.err
		default:
			return nil, ErrEngineClosed
		}
	case <-abandon:
		return nil, ctx.Err()
	}
}

// Submit sends a limit order to the book and returns its id.
func (e *Engine) Submit(ctx context.Context, o LimitOrder) (string, error) {
	v, err := e.do(ctx, Command{Type: CmdSubmit, Order: &o})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (e *Engine) FullDepth(ctx context.Context) (Depth, error) {
	v, err := e.do(ctx, Command{Type: CmdFullDepth})
	if err != nil {
		return Depth{}, err
	}
	return v.(Depth), nil
}

func (e *Engine) AggregatedDepth(ctx context.Context) (AggregatedDepth, error) {
	v, err := e.do(ctx, Command{Type: CmdAggregatedDepth})
	if err != nil {
		return AggregatedDepth{}, err
	}
	return v.(AggregatedDepth), nil
}

func (e *Engine) MarketSummary(ctx context.Context) (MarketSummary, error) {
	v, err := e.do(ctx, Command{Type: CmdMarketSummary})
	if err != nil {
		return MarketSummary{}, err
	}
	return v.(MarketSummary), nil
}

func (e *Engine) Status(ctx context.Context, id string) (StatusView, error) {
	v, err := e.do(ctx, Command{Type: CmdStatus, ID: id})
	if err != nil {
		return StatusView{}, err
	}
	return v.(StatusView), nil
}

func (e *Engine) RecentTrades(ctx context.Context, count int) ([]Trade, error) {
	v, err := e.do(ctx, Command{Type: CmdRecentTrades, Count: count})
	if err != nil {
		return nil, err
	}
	return v.([]Trade), nil
}

package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/michailmelonas/order-book-app/internal/engine"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams trades and market summaries as JSON. Trades are
// keyed by taker order id so one submission's fills stay in order on a
// single partition.
type KafkaPublisher struct {
	writer       messageWriter
	tradeTopic   string
	summaryTopic string
}

func NewKafkaPublisher(brokers []string, tradeTopic, summaryTopic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		Balancer:     &kafka.Hash{},
	}, tradeTopic, summaryTopic)
}

func newKafkaPublisher(w messageWriter, tradeTopic, summaryTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       w,
		tradeTopic:   tradeTopic,
		summaryTopic: summaryTopic,
	}
}

func (p *KafkaPublisher) PublishTrades(ctx context.Context, trades ...engine.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(trades))
	for _, tr := range trades {
		value, err := json.Marshal(tr)
		if err != nil {
			return errors.Wrapf(err, "encode trade %s", tr.ID)
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.tradeTopic,
			Key:   []byte(tr.TakerOrderID),
			Value: value,
			Time:  tr.CreatedAt,
		})
	}
	return errors.Wrap(p.writer.WriteMessages(ctx, msgs...), "write trades")
}

func (p *KafkaPublisher) PublishSummary(ctx context.Context, s engine.MarketSummary) error {
	value, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.summaryTopic,
		Key:   []byte("summary"),
		Value: value,
	})
	return errors.Wrap(err, "write summary")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

package db

import (
	"context"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"

	"github.com/michailmelonas/order-book-app/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id             TEXT PRIMARY KEY,
	price          NUMERIC NOT NULL,
	quantity       NUMERIC NOT NULL,
	taker_side     TEXT NOT NULL,
	taker_order_id UUID NOT NULL,
	maker_order_id UUID NOT NULL,
	traded_at      TIMESTAMPTZ NOT NULL
)`

const insertTrade = `
INSERT INTO trades (id, price, quantity, taker_side, taker_order_id, maker_order_id, traded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// DB is the part of *pgxpool.Pool the journal uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TradeJournal appends executed trades to Postgres. It is an audit copy
// only; the order book never reads it back.
type TradeJournal struct {
	db DB
}

func NewTradeJournal(db DB) *TradeJournal {
	return &TradeJournal{db: db}
}

func (j *TradeJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.Exec(ctx, schema)
	return errors.Wrap(err, "create trades table")
}

// PublishTrades writes all trades of one submission in a single
// transaction.
func (j *TradeJournal) PublishTrades(ctx context.Context, trades ...engine.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, j.db, func(tx pgx.Tx) error {
		for _, tr := range trades {
			takerID, err := uuidFromString(tr.TakerOrderID)
			if err != nil {
				return errors.Wrapf(err, "trade %s taker order id", tr.ID)
			}
			makerID, err := uuidFromString(tr.MakerOrderID)
			if err != nil {
				return errors.Wrapf(err, "trade %s maker order id", tr.ID)
			}
			_, err = tx.Exec(ctx, insertTrade,
				tr.ID,
				numericFromInt64(tr.Price),
				numericFromInt64(tr.Quantity),
				string(tr.TakerSide),
				takerID,
				makerID,
				tr.CreatedAt,
			)
			if err != nil {
				return errors.Wrapf(err, "insert trade %s", tr.ID)
			}
		}
		return nil
	})
	return errors.Wrap(err, "journal trades")
}

func uuidFromString(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, err
	}
	var out pgtype.UUID
	out.Valid = true
	out.Bytes = parsed
	return out, nil
}

func numericFromInt64(v int64) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   big.NewInt(v),
		Valid: true,
	}
}

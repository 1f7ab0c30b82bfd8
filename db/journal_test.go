package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michailmelonas/order-book-app/internal/engine"
)

type execCall struct {
	sql  string
	args []any
}

type fakeTx struct {
	pgx.Tx // unused methods panic

	db        *fakeDB
	committed bool
	closed    bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.db.failExec != nil {
		return pgconn.CommandTag{}, tx.db.failExec
	}
	tx.db.pending = append(tx.db.pending, execCall{sql, args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed, tx.committed = true, true
	tx.db.committed = append(tx.db.committed, tx.db.pending...)
	tx.db.pending = nil
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.pending = nil
	tx.db.rollbacks++
	return nil
}

type fakeDB struct {
	failBegin error
	failExec  error

	execs     []execCall
	pending   []execCall
	committed []execCall
	rollbacks int
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if d.failBegin != nil {
		return nil, d.failBegin
	}
	return &fakeTx{db: d}, nil
}

func (d *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, execCall{sql, args})
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func testTrade(price, qty int64) engine.Trade {
	return engine.Trade{
		ID:           "cs1s2ecq4vks7ti1dst0",
		Price:        price,
		Quantity:     qty,
		TakerSide:    engine.SideBuy,
		TakerOrderID: uuid.NewString(),
		MakerOrderID: uuid.NewString(),
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewTradeJournal(db).EnsureSchema(context.Background()))
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS trades")
}

func TestPublishTradesCommitsOnce(t *testing.T) {
	db := &fakeDB{}
	j := NewTradeJournal(db)
	a, b := testTrade(3, 1), testTrade(4, 2)

	require.NoError(t, j.PublishTrades(context.Background(), a, b))
	require.Len(t, db.committed, 2)
	assert.Zero(t, db.rollbacks)

	args := db.committed[1].args
	require.Len(t, args, 7)
	assert.Equal(t, b.ID, args[0])
	assert.Equal(t, numericFromInt64(4), args[1])
	assert.Equal(t, "BUY", args[3])
	taker := args[4].(pgtype.UUID)
	assert.True(t, taker.Valid)
	assert.Equal(t, uuid.MustParse(b.TakerOrderID), uuid.UUID(taker.Bytes))
	assert.Equal(t, b.CreatedAt, args[6])
}

func TestPublishNoTrades(t *testing.T) {
	db := &fakeDB{failBegin: errors.New("should not begin")}
	assert.NoError(t, NewTradeJournal(db).PublishTrades(context.Background()))
}

func TestPublishTradesRollsBack(t *testing.T) {
	db := &fakeDB{failExec: errors.New("disk full")}
	err := NewTradeJournal(db).PublishTrades(context.Background(), testTrade(3, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, db.committed)
	assert.Equal(t, 1, db.rollbacks)
}

func TestPublishTradesRejectsNonUUIDOrderIDs(t *testing.T) {
	db := &fakeDB{}
	tr := testTrade(3, 1)
	tr.MakerOrderID = "o1"

	err := NewTradeJournal(db).PublishTrades(context.Background(), tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maker order id")
	assert.Empty(t, db.committed)
}

func TestPublishTradesBeginFails(t *testing.T) {
	db := &fakeDB{failBegin: errors.New("no connection")}
	err := NewTradeJournal(db).PublishTrades(context.Background(), testTrade(3, 1))
	assert.ErrorContains(t, err, "no connection")
}

func TestNumericFromInt64(t *testing.T) {
	n := numericFromInt64(42)
	assert.True(t, n.Valid)
	assert.Equal(t, int64(42), n.Int.Int64())
	assert.Zero(t, n.Exp)
}

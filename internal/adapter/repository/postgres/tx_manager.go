package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/booklend/internal/usecase"
)

// DefaultLockTimeout bounds how long a transaction waits on a book row lock
// held by a concurrent borrow or return.
const DefaultLockTimeout = 5 * time.Second

type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxManager opens the transactions that borrow and return run in. Book rows
// locked through the repositories stay locked until Commit or Rollback.
type TxManager struct {
	db          beginner
	lockTimeout time.Duration
}

// NewTxManager creates a TxManager using DefaultLockTimeout.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManager(pool, DefaultLockTimeout)
}

func newTxManager(db beginner, lockTimeout time.Duration) *TxManager {
	return &TxManager{db: db, lockTimeout: lockTimeout}
}

// Begin starts a READ COMMITTED transaction with a local lock_timeout.
// Lock waits that exceed it fail with SQLSTATE 55P03, which the Retrier
// treats as transient.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	pgxTx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, translateError(err)
	}

	if m.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := pgxTx.Exec(ctx, stmt); err != nil {
			_ = pgxTx.Rollback(ctx)
			return nil, translateError(err)
		}
	}

	return &Tx{tx: pgxTx}, nil
}

// Tx is a lending transaction backed by pgx.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error {
	return translateError(t.tx.Commit(ctx))
}

// Rollback is a no-op on a transaction that already ended.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return translateError(err)
	}
	return nil
}

// PgxTx exposes the driver transaction to the repositories.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

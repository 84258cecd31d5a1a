// Package memory is a process-local store with the same transactional
// contract as the postgres adapter. Writes made through a Tx are buffered and
// applied together on Commit; a Tx holds per-book and per-user locks until it ends.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

var errTxDone = errors.New("transaction already closed")

// Store holds all tables. Every read copies values out so callers never
// share memory with stored rows.
type Store struct {
	mu sync.RWMutex

	books      map[string]domain.Book
	users      map[string]domain.User
	loans      map[string]domain.Loan
	openByBook map[string]string
	outbox     []domain.OutboxEvent
	audit      []domain.AuditLog

	locks *keyedMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		books:      make(map[string]domain.Book),
		users:      make(map[string]domain.User),
		loans:      make(map[string]domain.Loan),
		openByBook: make(map[string]string),
		locks:      newKeyedMutex(),
	}
}

// Begin starts a transaction. Store satisfies usecase.TransactionManager.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s}, nil
}

// Tx buffers writes until Commit.
type Tx struct {
	store *Store

	mu   sync.Mutex
	ops  []func(*Store)
	held []string
	done bool
}

func (tx *Tx) lock(ctx context.Context, key string) error {
	tx.mu.Lock()
	if tx.done {
		tx.mu.Unlock()
		return errTxDone
	}
	for _, k := range tx.held {
		if k == key {
			tx.mu.Unlock()
			return nil
		}
	}
	tx.mu.Unlock()

	if err := tx.store.locks.Lock(ctx, key); err != nil {
		return err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		tx.store.locks.Unlock(key)
		return errTxDone
	}
	tx.held = append(tx.held, key)
	return nil
}

func (tx *Tx) holds(key string) bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for _, k := range tx.held {
		if k == key {
			return true
		}
	}
	return false
}

func (tx *Tx) enqueue(op func(*Store)) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return errTxDone
	}
	tx.ops = append(tx.ops, op)
	return nil
}

// Commit applies all buffered writes at once and releases the locks.
func (tx *Tx) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		tx.finish()
		return err
	}

	tx.store.mu.Lock()
	for _, op := range tx.ops {
		op(tx.store)
	}
	tx.store.mu.Unlock()

	tx.finish()
	return nil
}

// Rollback discards buffered writes. It is a no-op after Commit.
func (tx *Tx) Rollback(context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return nil
	}
	tx.finish()
	return nil
}

// finish must be called with tx.mu held.
func (tx *Tx) finish() {
	tx.done = true
	tx.ops = nil
	for _, key := range tx.held {
		tx.store.locks.Unlock(key)
	}
	tx.held = nil
}

func asTx(t usecase.Transaction) (*Tx, error) {
	tx, ok := t.(*Tx)
	if !ok || tx == nil {
		return nil, errors.New("memory: foreign transaction")
	}
	return tx, nil
}

func bookLockKey(id string) string { return "book:" + id }

func userLockKey(id string) string { return "user:" + id }

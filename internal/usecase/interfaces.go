package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/booklend/internal/domain"
)

// BookRepository defines data access for the catalog.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	// GetByIDForUpdate locks the book until tx ends. Every flow that reads
	// and then changes availability goes through this lock first.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Book, error)
	SetAvailable(ctx context.Context, tx Transaction, id string, available bool, updatedAt time.Time) error
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, limit, offset int) ([]*domain.Book, error)
}

// LoanCursor marks the last loan of a history page. Pages are ordered by
// (BorrowedAt, ID) descending.
type LoanCursor struct {
	BorrowedAt time.Time
	ID         string
}

// LoanRepository defines data access for the loan ledger.
type LoanRepository interface {
	// Create inserts an open loan. A second open loan for the same book is
	// rejected with domain.ErrBookUnavailable.
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetOpenByBookForUpdate(ctx context.Context, tx Transaction, bookID string) (*domain.Loan, error)
	GetOpenByUserAndBookForUpdate(ctx context.Context, tx Transaction, userID, bookID string) (*domain.Loan, error)
	// Close sets returned_at on an open loan; domain.ErrNoOpenLoan when the
	// loan is already closed.
	Close(ctx context.Context, tx Transaction, id string, returnedAt time.Time) error
	FindOpenByBook(ctx context.Context, bookID string) (*domain.Loan, error)
	ListOpenByUser(ctx context.Context, userID string) ([]*domain.Loan, error)
	ListByUser(ctx context.Context, userID string, after *LoanCursor, limit int) ([]*domain.Loan, error)
	OpenBookIDs(ctx context.Context) ([]string, error)
}

// UserRepository defines data access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetByIDForShare holds the user until tx ends so a concurrent Delete
	// waits for it. Borrowers take it before opening a loan.
	GetByIDForShare(ctx context.Context, tx Transaction, id string) (*domain.User, error)
	// GetByIDForUpdate holds the user exclusively until tx ends.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.User, error)
	Delete(ctx context.Context, tx Transaction, id string) error
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient store conflicts. Any other error
// is returned as is.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ErrCacheMiss is returned by Cache.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from holding book locks
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultHistoryPageSize is how many loans a history iterator fetches per query
	DefaultHistoryPageSize = 50

	// MaxHistoryPageSize caps caller-provided page sizes
	MaxHistoryPageSize = 500

	// DefaultBookCacheTTL is how long book summaries stay cached
	DefaultBookCacheTTL = 10 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyInFlight is held under a key until its first request finishes
	IdempotencyInFlight = "processing"
)

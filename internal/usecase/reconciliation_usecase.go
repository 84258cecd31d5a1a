package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/logger"
	"github.com/iho/booklend/internal/infrastructure/metrics"
)

const reconciliationPageSize = 1000

// ReconciliationUseCase compares every book's availability flag against the
// loan ledger and rewrites flags that drifted. The ledger is authoritative.
type ReconciliationUseCase struct {
	txManager TransactionManager
	bookRepo  BookRepository
	loanRepo  LoanRepository
	auditRepo AuditRepository
	idGen     IDGenerator
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	clock     Clock
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	bookRepo BookRepository,
	loanRepo LoanRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager: txManager,
		bookRepo:  bookRepo,
		loanRepo:  loanRepo,
		auditRepo: auditRepo,
		idGen:     idGen,
		metrics:   metrics,
		logger:    logger,
		clock:     SystemClock{},
	}
}

// SetClock overrides the wall clock used for timestamps.
func (uc *ReconciliationUseCase) SetClock(c Clock) { uc.clock = c }

// AvailabilityDiscrepancy is a book whose flag disagrees with the ledger.
type AvailabilityDiscrepancy struct {
	BookID            string
	RecordedAvailable bool
	DerivedAvailable  bool
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalBooks    int
	OpenLoans     int
	Discrepancies []AvailabilityDiscrepancy
	Repaired      int
	Consistent    bool
	CheckedAt     time.Time
}

// CheckConsistency scans the catalog without locking. Lending that runs
// concurrently can show up as a discrepancy that is already gone; Repair
// re-checks each book under its lock before writing.
func (uc *ReconciliationUseCase) CheckConsistency(ctx context.Context) (*ReconciliationReport, error) {
	openIDs, err := uc.loanRepo.OpenBookIDs(ctx)
	if err != nil {
		return nil, err
	}
	onLoan := make(map[string]struct{}, len(openIDs))
	for _, id := range openIDs {
		onLoan[id] = struct{}{}
	}

	report := &ReconciliationReport{
		OpenLoans:     len(openIDs),
		Discrepancies: make([]AvailabilityDiscrepancy, 0),
		CheckedAt:     uc.clock.Now().UTC(),
	}

	for offset := 0; ; offset += reconciliationPageSize {
		books, err := uc.bookRepo.List(ctx, reconciliationPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list books at offset %d: %w", offset, err)
		}

		for _, book := range books {
			report.TotalBooks++
			_, borrowed := onLoan[book.ID]
			if book.Available == borrowed {
				report.Discrepancies = append(report.Discrepancies, AvailabilityDiscrepancy{
					BookID:            book.ID,
					RecordedAvailable: book.Available,
					DerivedAvailable:  !borrowed,
				})
			}
		}

		if len(books) < reconciliationPageSize {
			break
		}
	}

	report.Consistent = len(report.Discrepancies) == 0
	if uc.metrics != nil {
		uc.metrics.AvailabilityDrift.Set(float64(len(report.Discrepancies)))
	}

	return report, nil
}

// ReconcileBook re-derives one book's flag from the ledger under the book
// lock. It reports whether the flag was rewritten.
func (uc *ReconciliationUseCase) ReconcileBook(ctx context.Context, actor domain.Principal, bookID string) (bool, error) {
	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	book, err := uc.bookRepo.GetByIDForUpdate(txCtx, tx, bookID)
	if err != nil {
		return false, err
	}

	derived := true
	_, err = uc.loanRepo.GetOpenByBookForUpdate(txCtx, tx, bookID)
	switch {
	case err == nil:
		derived = false
	case !errors.Is(err, domain.ErrLoanNotFound):
		return false, err
	}

	if book.Available == derived {
		return false, nil
	}

	now := uc.clock.Now().UTC()
	if err := uc.bookRepo.SetAvailable(txCtx, tx, bookID, derived, now); err != nil {
		return false, err
	}

	if uc.auditRepo != nil {
		auditLog := domain.NewAuditLog(uc.idGen.Generate(), actor, domain.AuditActionAvailabilityRepair, domain.AggregateTypeBook, bookID, now).
			WithStates(domain.JSON{"available": book.Available}, domain.JSON{"available": derived}).
			WithRequestID(logger.RequestID(ctx))
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return false, err
	}

	uc.logger.Warn().
		Str("book_id", bookID).
		Bool("recorded_available", book.Available).
		Bool("derived_available", derived).
		Msg("availability flag repaired from loan ledger")

	if uc.metrics != nil {
		uc.metrics.AvailabilityRepairs.Inc()
	}

	return true, nil
}

// Repair runs CheckConsistency and reconciles every discrepancy it found.
func (uc *ReconciliationUseCase) Repair(ctx context.Context, actor domain.Principal) (*ReconciliationReport, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrInsufficientRole
	}

	report, err := uc.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range report.Discrepancies {
		repaired, err := uc.ReconcileBook(ctx, actor, d.BookID)
		if err != nil {
			if errors.Is(err, domain.ErrBookNotFound) {
				continue
			}
			return nil, fmt.Errorf("reconcile book %s: %w", d.BookID, err)
		}
		if repaired {
			report.Repaired++
		}
	}

	if uc.metrics != nil && report.Repaired > 0 {
		uc.metrics.AvailabilityDrift.Set(float64(len(report.Discrepancies) - report.Repaired))
	}

	return report, nil
}

package usecase

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/logger"
	"github.com/iho/booklend/internal/infrastructure/metrics"
)

// LendingUseCase owns the borrow/return flow. A book's availability flag and
// its open loan are always changed in one transaction while the book row is
// locked, so concurrent requests for the same book are serialized and
// requests for different books never wait on each other.
type LendingUseCase struct {
	txManager  TransactionManager
	bookRepo   BookRepository
	loanRepo   LoanRepository
	userRepo   UserRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
	clock      Clock
	logger     zerolog.Logger
	books      *bookSummaryCache
	retrier    Retrier
}

// LendingOption configures optional collaborators of LendingUseCase.
type LendingOption func(*LendingUseCase)

// WithClock overrides the wall clock.
func WithClock(c Clock) LendingOption {
	return func(uc *LendingUseCase) { uc.clock = c }
}

// WithLogger sets the logger used for drift warnings.
func WithLogger(l zerolog.Logger) LendingOption {
	return func(uc *LendingUseCase) {
		uc.logger = l
		if uc.books != nil {
			uc.books.logger = l
		}
	}
}

// WithRetrier re-runs Borrow and Return when the store reports a transient
// conflict such as a deadlock.
func WithRetrier(r Retrier) LendingOption {
	return func(uc *LendingUseCase) { uc.retrier = r }
}

// WithBookCache enables the book summary cache for history enrichment.
func WithBookCache(c Cache, ttl time.Duration) LendingOption {
	return func(uc *LendingUseCase) {
		if ttl <= 0 {
			ttl = DefaultBookCacheTTL
		}
		uc.books = &bookSummaryCache{cache: c, ttl: ttl, logger: uc.logger}
	}
}

func NewLendingUseCase(
	txManager TransactionManager,
	bookRepo BookRepository,
	loanRepo LoanRepository,
	userRepo UserRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	opts ...LendingOption,
) *LendingUseCase {
	uc := &LendingUseCase{
		txManager:  txManager,
		bookRepo:   bookRepo,
		loanRepo:   loanRepo,
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		idGen:      idGen,
		metrics:    metrics,
		clock:      SystemClock{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// BorrowInput identifies who borrows which book and on whose authority.
type BorrowInput struct {
	Actor  domain.Principal
	UserID string
	BookID string
}

// Borrow opens a loan for the user and marks the book unavailable.
func (uc *LendingUseCase) Borrow(ctx context.Context, input BorrowInput) (*domain.Loan, error) {
	var loan *domain.Loan
	err := uc.retry(ctx, func() error {
		var err error
		loan, err = uc.borrow(ctx, input)
		return err
	})
	return loan, err
}

func (uc *LendingUseCase) borrow(ctx context.Context, input BorrowInput) (*domain.Loan, error) {
	start := time.Now()

	if err := validateLoanKey(input.UserID, input.BookID); err != nil {
		return nil, err
	}
	if !input.Actor.CanActFor(input.UserID) {
		uc.reject("borrow", "forbidden")
		return nil, domain.ErrForbidden
	}

	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// The borrower stays locked until commit, so DeleteUser cannot remove
	// them between this check and the new loan. User before book, always.
	if uc.userRepo != nil {
		if _, err := uc.userRepo.GetByIDForShare(txCtx, tx, input.UserID); err != nil {
			return nil, err
		}
	}

	// Lock book before touching the ledger
	book, err := uc.bookRepo.GetByIDForUpdate(txCtx, tx, input.BookID)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			uc.reject("borrow", "not_found")
		}
		return nil, err
	}

	// The ledger decides. The flag only tells us whether it drifted.
	open, err := uc.loanRepo.GetOpenByBookForUpdate(txCtx, tx, book.ID)
	switch {
	case err == nil:
		if book.Available {
			uc.logger.Warn().
				Str("book_id", book.ID).
				Str("loan_id", open.ID).
				Msg("book flagged available while an open loan exists")
		}
		uc.reject("borrow", "unavailable")
		return nil, domain.ErrBookUnavailable
	case !errors.Is(err, domain.ErrLoanNotFound):
		return nil, err
	}

	if !book.Available {
		uc.logger.Warn().
			Str("book_id", book.ID).
			Msg("book flagged unavailable with no open loan, repairing on borrow")
	}

	now := uc.clock.Now().UTC()
	loan := &domain.Loan{
		ID:         uc.idGen.Generate(),
		UserID:     input.UserID,
		BookID:     book.ID,
		BorrowedAt: now,
	}

	if err := uc.loanRepo.Create(txCtx, tx, loan); err != nil {
		if errors.Is(err, domain.ErrBookUnavailable) {
			uc.reject("borrow", "unavailable")
		}
		return nil, err
	}

	if err := uc.bookRepo.SetAvailable(txCtx, tx, book.ID, false, now); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   loan.ID,
		AggregateType: domain.AggregateTypeLoan,
		EventType:     domain.EventTypeLoanBorrowed,
		Payload:       domain.LoanBorrowedPayload(loan),
		CreatedAt:     now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.audit(txCtx, tx, input.Actor, domain.AuditActionLoanBorrow, loan.ID, nil, loan); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoansBorrowed.Inc()
		uc.metrics.LendingDuration.WithLabelValues("borrow").Observe(time.Since(start).Seconds())
	}

	return loan, nil
}

// ReturnInput identifies the loan to close and who is closing it.
type ReturnInput struct {
	Actor  domain.Principal
	UserID string
	BookID string
}

// Return closes the user's open loan for the book and marks the book
// available again. A book deleted from the catalog while on loan can still
// be returned; only the loan is closed in that case.
func (uc *LendingUseCase) Return(ctx context.Context, input ReturnInput) (*domain.Loan, error) {
	var loan *domain.Loan
	err := uc.retry(ctx, func() error {
		var err error
		loan, err = uc.returnLoan(ctx, input)
		return err
	})
	return loan, err
}

func (uc *LendingUseCase) returnLoan(ctx context.Context, input ReturnInput) (*domain.Loan, error) {
	start := time.Now()

	if err := validateLoanKey(input.UserID, input.BookID); err != nil {
		return nil, err
	}
	if !input.Actor.CanActFor(input.UserID) {
		uc.reject("return", "forbidden")
		return nil, domain.ErrForbidden
	}

	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Same lock order as Borrow: book first, then loan
	bookExists := true
	book, err := uc.bookRepo.GetByIDForUpdate(txCtx, tx, input.BookID)
	if err != nil {
		if !errors.Is(err, domain.ErrBookNotFound) {
			return nil, err
		}
		bookExists = false
	}

	loan, err := uc.loanRepo.GetOpenByUserAndBookForUpdate(txCtx, tx, input.UserID, input.BookID)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			uc.reject("return", "no_open_loan")
			return nil, domain.ErrNoOpenLoan
		}
		return nil, err
	}

	before := *loan
	returnedAt := loan.Close(uc.clock.Now().UTC())

	if err := uc.loanRepo.Close(txCtx, tx, loan.ID, returnedAt); err != nil {
		if errors.Is(err, domain.ErrNoOpenLoan) {
			uc.reject("return", "no_open_loan")
		}
		return nil, err
	}

	if bookExists {
		if book.Available {
			uc.logger.Warn().
				Str("book_id", book.ID).
				Str("loan_id", loan.ID).
				Msg("book flagged available while an open loan exists")
		}
		if err := uc.bookRepo.SetAvailable(txCtx, tx, book.ID, true, returnedAt); err != nil {
			return nil, err
		}
	} else {
		uc.logger.Info().
			Str("book_id", input.BookID).
			Str("loan_id", loan.ID).
			Msg("closing loan for a book no longer in the catalog")
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   loan.ID,
		AggregateType: domain.AggregateTypeLoan,
		EventType:     domain.EventTypeLoanReturned,
		Payload:       domain.LoanReturnedPayload(loan, !bookExists),
		CreatedAt:     returnedAt,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.audit(txCtx, tx, input.Actor, domain.AuditActionLoanReturn, loan.ID, &before, loan); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LoansReturned.Inc()
		uc.metrics.LendingDuration.WithLabelValues("return").Observe(time.Since(start).Seconds())
	}

	return loan, nil
}

// HistoryInput selects whose loan history to read.
type HistoryInput struct {
	Actor    domain.Principal
	UserID   string
	PageSize int
}

// History returns the user's loans, most recent first, each joined with the
// current title and author of its book. Loans are fetched a page at a time
// as the sequence is consumed, and every range over the sequence starts a
// fresh read. Loans whose book was deleted carry domain.RemovedBookSummary.
func (uc *LendingUseCase) History(ctx context.Context, input HistoryInput) (iter.Seq2[*domain.LoanRecord, error], error) {
	if err := domain.ValidateID(input.UserID); err != nil {
		return nil, err
	}
	if !input.Actor.CanActFor(input.UserID) {
		return nil, domain.ErrForbidden
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}

	return func(yield func(*domain.LoanRecord, error) bool) {
		var cursor *LoanCursor
		for {
			loans, err := uc.loanRepo.ListByUser(ctx, input.UserID, cursor, pageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(loans) == 0 {
				return
			}

			summaries, err := uc.bookSummaries(ctx, loans)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, loan := range loans {
				if !yield(&domain.LoanRecord{Loan: loan, Book: summaries[loan.BookID]}, nil) {
					return
				}
			}

			if len(loans) < pageSize {
				return
			}
			last := loans[len(loans)-1]
			cursor = &LoanCursor{BorrowedAt: last.BorrowedAt, ID: last.ID}
		}
	}, nil
}

// CollectHistory drains History into a slice.
func (uc *LendingUseCase) CollectHistory(ctx context.Context, input HistoryInput) ([]*domain.LoanRecord, error) {
	seq, err := uc.History(ctx, input)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.LoanRecord, 0)
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// IsBorrowedBy reports whether userID currently holds the open loan on bookID.
func (uc *LendingUseCase) IsBorrowedBy(ctx context.Context, userID, bookID string) (bool, error) {
	if err := validateLoanKey(userID, bookID); err != nil {
		return false, err
	}

	loan, err := uc.loanRepo.FindOpenByBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return false, nil
		}
		return false, err
	}

	return loan.UserID == userID, nil
}

// OpenLoans lists the loans the user has not returned yet.
func (uc *LendingUseCase) OpenLoans(ctx context.Context, actor domain.Principal, userID string) ([]*domain.Loan, error) {
	if err := domain.ValidateID(userID); err != nil {
		return nil, err
	}
	if !actor.CanActFor(userID) {
		return nil, domain.ErrForbidden
	}

	return uc.loanRepo.ListOpenByUser(ctx, userID)
}

func (uc *LendingUseCase) bookSummaries(ctx context.Context, loans []*domain.Loan) (map[string]domain.BookSummary, error) {
	seen := make(map[string]struct{}, len(loans))
	ids := make([]string, 0, len(loans))
	for _, loan := range loans {
		if _, ok := seen[loan.BookID]; ok {
			continue
		}
		seen[loan.BookID] = struct{}{}
		ids = append(ids, loan.BookID)
	}

	summaries, missing := uc.books.get(ctx, ids)
	if uc.metrics != nil && uc.books.enabled() {
		uc.metrics.BookCacheReads.WithLabelValues("hit").Add(float64(len(summaries)))
		uc.metrics.BookCacheReads.WithLabelValues("miss").Add(float64(len(missing)))
	}
	if len(missing) == 0 {
		return summaries, nil
	}

	books, err := uc.bookRepo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, book := range books {
		summaries[book.ID] = book.Summary()
		uc.books.put(ctx, book)
	}
	for _, id := range missing {
		if _, ok := summaries[id]; !ok {
			summaries[id] = domain.RemovedBookSummary
		}
	}

	return summaries, nil
}

func (uc *LendingUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}

func (uc *LendingUseCase) reject(operation, reason string) {
	if uc.metrics != nil {
		uc.metrics.LendingRejections.WithLabelValues(operation, reason).Inc()
	}
}

func (uc *LendingUseCase) audit(
	ctx context.Context,
	tx Transaction,
	actor domain.Principal,
	action domain.AuditAction,
	loanID string,
	before, after *domain.Loan,
) error {
	if uc.auditRepo == nil {
		return nil
	}

	auditLog := domain.NewAuditLog(uc.idGen.Generate(), actor, action, domain.AggregateTypeLoan, loanID, uc.clock.Now()).
		WithStates(before, after).
		WithRequestID(logger.RequestID(ctx))
	if err := uc.auditRepo.CreateTx(ctx, tx, auditLog); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(auditLog.Action, auditLog.Status).Inc()
	}
	return nil
}

func validateLoanKey(userID, bookID string) error {
	if err := domain.ValidateID(userID); err != nil {
		return err
	}
	return domain.ValidateID(bookID)
}


package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/logger"
	"github.com/iho/booklend/internal/infrastructure/metrics"
)

// CatalogUseCase manages books. It never sets availability directly; a new
// book starts available and only the lending flow flips it afterwards.
type CatalogUseCase struct {
	txManager  TransactionManager
	bookRepo   BookRepository
	loanRepo   LoanRepository
	outboxRepo OutboxRepository
	auditRepo  AuditRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
	clock      Clock
	logger     zerolog.Logger
	books      *bookSummaryCache
}

func NewCatalogUseCase(
	txManager TransactionManager,
	bookRepo BookRepository,
	loanRepo LoanRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	cache Cache,
	logger zerolog.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		txManager:  txManager,
		bookRepo:   bookRepo,
		loanRepo:   loanRepo,
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		idGen:      idGen,
		metrics:    metrics,
		clock:      SystemClock{},
		logger:     logger,
		books:      &bookSummaryCache{cache: cache, ttl: DefaultBookCacheTTL, logger: logger},
	}
}

// SetClock overrides the wall clock used for timestamps.
func (uc *CatalogUseCase) SetClock(c Clock) { uc.clock = c }

// CreateBookInput represents input for adding a book
type CreateBookInput struct {
	Actor  domain.Principal
	Title  string
	Author string
	ISBN   string
}

// CreateBook adds a book to the catalog. New books are always available.
func (uc *CatalogUseCase) CreateBook(ctx context.Context, input CreateBookInput) (*domain.Book, error) {
	if !input.Actor.Role.CanManageCatalog() {
		return nil, domain.ErrInsufficientRole
	}

	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	if err := domain.ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := domain.ValidateAuthor(author); err != nil {
		return nil, err
	}
	if err := domain.ValidateISBN(input.ISBN); err != nil {
		return nil, err
	}

	now := uc.clock.Now().UTC()
	book := &domain.Book{
		ID:        uc.idGen.Generate(),
		Title:     title,
		Author:    author,
		ISBN:      domain.NormalizeISBN(input.ISBN),
		Available: true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	uc.auditNoTx(ctx, input.Actor, domain.AuditActionBookCreate, book.ID, nil, book)

	if uc.metrics != nil {
		uc.metrics.BooksCreated.Inc()
	}

	return book, nil
}

// GetBook retrieves a book by ID
func (uc *CatalogUseCase) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	return uc.bookRepo.GetByID(ctx, id)
}

// ListBooks lists books with pagination
func (uc *CatalogUseCase) ListBooks(ctx context.Context, limit, offset int) ([]*domain.Book, error) {
	limit, offset, _ = domain.ValidatePagination(limit, offset)
	return uc.bookRepo.List(ctx, limit, offset)
}

// UpdateBookInput carries the editable catalog fields. Nil fields are left
// unchanged. Availability is not editable.
type UpdateBookInput struct {
	Actor  domain.Principal
	ID     string
	Title  *string
	Author *string
	ISBN   *string
}

// UpdateBook edits title, author or ISBN of a book.
func (uc *CatalogUseCase) UpdateBook(ctx context.Context, input UpdateBookInput) (*domain.Book, error) {
	if !input.Actor.Role.CanManageCatalog() {
		return nil, domain.ErrInsufficientRole
	}
	if err := domain.ValidateID(input.ID); err != nil {
		return nil, err
	}

	book, err := uc.bookRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	before := *book

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := domain.ValidateTitle(title); err != nil {
			return nil, err
		}
		book.Title = title
	}
	if input.Author != nil {
		author := strings.TrimSpace(*input.Author)
		if err := domain.ValidateAuthor(author); err != nil {
			return nil, err
		}
		book.Author = author
	}
	if input.ISBN != nil {
		if err := domain.ValidateISBN(*input.ISBN); err != nil {
			return nil, err
		}
		book.ISBN = domain.NormalizeISBN(*input.ISBN)
	}
	book.UpdatedAt = uc.clock.Now().UTC()

	if err := uc.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}
	uc.books.invalidate(ctx, book.ID)

	uc.auditNoTx(ctx, input.Actor, domain.AuditActionBookUpdate, book.ID, &before, book)

	// Availability may have changed since the read; return what is stored.
	return uc.bookRepo.GetByID(ctx, book.ID)
}

// DeleteBook removes a book from the catalog. Loans that reference it stay
// in the ledger; an open loan can still be returned afterwards.
func (uc *CatalogUseCase) DeleteBook(ctx context.Context, actor domain.Principal, id string) error {
	if !actor.Role.CanManageCatalog() {
		return domain.ErrInsufficientRole
	}
	if err := domain.ValidateID(id); err != nil {
		return err
	}

	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	book, err := uc.bookRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return err
	}

	openLoanID := ""
	open, err := uc.loanRepo.GetOpenByBookForUpdate(txCtx, tx, id)
	switch {
	case err == nil:
		openLoanID = open.ID
	case !errors.Is(err, domain.ErrLoanNotFound):
		return err
	}

	if err := uc.bookRepo.Delete(txCtx, tx, id); err != nil {
		return err
	}

	now := uc.clock.Now().UTC()
	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   id,
		AggregateType: domain.AggregateTypeBook,
		EventType:     domain.EventTypeBookDeleted,
		Payload: map[string]any{
			"book_id":      id,
			"title":        book.Title,
			"open_loan_id": openLoanID,
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return err
	}

	if uc.auditRepo != nil {
		auditLog := domain.NewAuditLog(uc.idGen.Generate(), actor, domain.AuditActionBookDelete, domain.AggregateTypeBook, id, now).
			WithStates(book, nil).
			WithRequestID(logger.RequestID(ctx))
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	uc.books.invalidate(ctx, id)
	if openLoanID != "" {
		uc.logger.Info().
			Str("book_id", id).
			Str("loan_id", openLoanID).
			Msg("deleted book is still on loan")
	}
	if uc.metrics != nil {
		uc.metrics.BooksDeleted.Inc()
	}

	return nil
}

// auditNoTx records catalog edits that are not part of a transaction.
// Failures are logged and do not fail the edit.
func (uc *CatalogUseCase) auditNoTx(ctx context.Context, actor domain.Principal, action domain.AuditAction, bookID string, before, after *domain.Book) {
	if uc.auditRepo == nil {
		return
	}

	auditLog := domain.NewAuditLog(uc.idGen.Generate(), actor, action, domain.AggregateTypeBook, bookID, uc.clock.Now()).
		WithStates(before, after).
		WithRequestID(logger.RequestID(ctx))

	if err := uc.auditRepo.Create(ctx, auditLog); err != nil {
		uc.logger.Warn().Err(err).Str("action", auditLog.Action).Msg("failed to write audit log")
		return
	}
	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(auditLog.Action, auditLog.Status).Inc()
	}
}

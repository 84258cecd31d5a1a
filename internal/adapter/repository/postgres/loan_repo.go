package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/postgres/generated"
	"github.com/iho/booklend/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository on the loans table.
// The partial unique index loans_one_open_per_book backs the row lock taken
// on the book: a second open loan for a book fails with
// domain.ErrBookUnavailable even if a caller skipped the lock.
type LoanRepository struct {
	queries *generated.Queries
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db generated.DBTX) *LoanRepository {
	return &LoanRepository{queries: generated.New(db)}
}

// Create inserts an open loan.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	err = queries.CreateLoan(ctx, generated.CreateLoanParams{
		ID:         loan.ID,
		UserID:     loan.UserID,
		BookID:     loan.BookID,
		BorrowedAt: timeToPgTimestamptz(loan.BorrowedAt),
	})

	return translateError(err)
}

// GetOpenByBookForUpdate returns the open loan of a book, locked.
func (r *LoanRepository) GetOpenByBookForUpdate(ctx context.Context, tx usecase.Transaction, bookID string) (*domain.Loan, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetOpenLoanByBookForUpdate(ctx, bookID)
	return loanOrNotFound(row, err)
}

// GetOpenByUserAndBookForUpdate returns the user's open loan of a book,
// locked.
func (r *LoanRepository) GetOpenByUserAndBookForUpdate(ctx context.Context, tx usecase.Transaction, userID, bookID string) (*domain.Loan, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetOpenLoanByUserAndBookForUpdate(ctx, generated.GetOpenLoanByUserAndBookForUpdateParams{
		UserID: userID,
		BookID: bookID,
	})
	return loanOrNotFound(row, err)
}

// Close stamps returned_at on an open loan.
func (r *LoanRepository) Close(ctx context.Context, tx usecase.Transaction, id string, returnedAt time.Time) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	n, err := queries.CloseLoan(ctx, generated.CloseLoanParams{
		ID:         id,
		ReturnedAt: timeToPgTimestamptz(returnedAt),
	})
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return domain.ErrNoOpenLoan
	}

	return nil
}

// FindOpenByBook returns the open loan of a book without locking.
func (r *LoanRepository) FindOpenByBook(ctx context.Context, bookID string) (*domain.Loan, error) {
	row, err := r.queries.GetOpenLoanByBook(ctx, bookID)
	return loanOrNotFound(row, err)
}

// ListOpenByUser returns the user's open loans, newest first.
func (r *LoanRepository) ListOpenByUser(ctx context.Context, userID string) ([]*domain.Loan, error) {
	rows, err := r.queries.ListOpenLoansByUser(ctx, userID)
	if err != nil {
		return nil, translateError(err)
	}

	return rowsToLoans(rows), nil
}

// ListByUser returns one page of the user's loans ordered by
// (borrowed_at, id) descending, starting strictly after the cursor.
func (r *LoanRepository) ListByUser(ctx context.Context, userID string, after *usecase.LoanCursor, limit int) ([]*domain.Loan, error) {
	var (
		rows []generated.Loan
		err  error
	)

	if after == nil {
		rows, err = r.queries.ListLoansByUser(ctx, generated.ListLoansByUserParams{
			UserID: userID,
			Limit:  int32(limit),
		})
	} else {
		rows, err = r.queries.ListLoansByUserAfter(ctx, generated.ListLoansByUserAfterParams{
			UserID:  userID,
			Column2: timeToPgTimestamptz(after.BorrowedAt),
			Column3: after.ID,
			Limit:   int32(limit),
		})
	}
	if err != nil {
		return nil, translateError(err)
	}

	return rowsToLoans(rows), nil
}

// OpenBookIDs lists the IDs of all books with an open loan.
func (r *LoanRepository) OpenBookIDs(ctx context.Context) ([]string, error) {
	ids, err := r.queries.ListOpenLoanBookIDs(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}

func loanOrNotFound(row generated.Loan, err error) (*domain.Loan, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, translateError(err)
	}

	return rowToLoan(row), nil
}

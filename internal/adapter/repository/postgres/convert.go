package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/postgres/generated"
	"github.com/iho/booklend/internal/usecase"
)

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func pgTimestamptzToPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}

func pgxTxOf(tx usecase.Transaction) (pgx.Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("postgres: unsupported transaction type %T", tx)
	}
	return t.PgxTx(), nil
}

// txQueries binds the generated queries to the pgx transaction behind tx.
func txQueries(tx usecase.Transaction) (*generated.Queries, error) {
	pgxTx, err := pgxTxOf(tx)
	if err != nil {
		return nil, err
	}
	return generated.New(pgxTx), nil
}

func rowToBook(row generated.Book) *domain.Book {
	return &domain.Book{
		ID:        row.ID,
		Title:     row.Title,
		Author:    row.Author,
		ISBN:      row.Isbn,
		Available: row.Available,
		CreatedAt: row.CreatedAt.Time.UTC(),
		UpdatedAt: row.UpdatedAt.Time.UTC(),
	}
}

func rowToLoan(row generated.Loan) *domain.Loan {
	return &domain.Loan{
		ID:         row.ID,
		UserID:     row.UserID,
		BookID:     row.BookID,
		BorrowedAt: row.BorrowedAt.Time.UTC(),
		ReturnedAt: pgTimestamptzToPtr(row.ReturnedAt),
	}
}

func rowsToLoans(rows []generated.Loan) []*domain.Loan {
	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, rowToLoan(row))
	}
	return loans
}

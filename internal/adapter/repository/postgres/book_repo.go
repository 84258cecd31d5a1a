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

// BookRepository implements usecase.BookRepository.
type BookRepository struct {
	queries *generated.Queries
}

// NewBookRepository creates a new BookRepository.
func NewBookRepository(db generated.DBTX) *BookRepository {
	return &BookRepository{queries: generated.New(db)}
}

// Create inserts a book.
func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	err := r.queries.CreateBook(ctx, generated.CreateBookParams{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Isbn:      book.ISBN,
		Available: book.Available,
		CreatedAt: timeToPgTimestamptz(book.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(book.UpdatedAt),
	})

	return translateError(err)
}

// GetByID retrieves a book by ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	row, err := r.queries.GetBookByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookNotFound
		}

		return nil, translateError(err)
	}

	return rowToBook(row), nil
}

// GetByIDs retrieves the books that still exist among ids.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return []*domain.Book{}, nil
	}

	rows, err := r.queries.GetBooksByIDs(ctx, ids)
	if err != nil {
		return nil, translateError(err)
	}

	books := make([]*domain.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, rowToBook(row))
	}

	return books, nil
}

// GetByIDForUpdate retrieves a book by ID with a FOR UPDATE lock.
func (r *BookRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Book, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetBookByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookNotFound
		}

		return nil, translateError(err)
	}

	return rowToBook(row), nil
}

// SetAvailable writes the availability flag inside tx.
func (r *BookRepository) SetAvailable(ctx context.Context, tx usecase.Transaction, id string, available bool, updatedAt time.Time) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	n, err := queries.SetBookAvailability(ctx, generated.SetBookAvailabilityParams{
		ID:        id,
		Available: available,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Update writes title, author and ISBN. The availability flag is left alone.
func (r *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	n, err := r.queries.UpdateBookDetails(ctx, generated.UpdateBookDetailsParams{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Isbn:      book.ISBN,
		UpdatedAt: timeToPgTimestamptz(book.UpdatedAt),
	})
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// Delete removes a book inside tx. Loans referencing it are kept.
func (r *BookRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	n, err := queries.DeleteBook(ctx, id)
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// List retrieves books in creation order.
func (r *BookRepository) List(ctx context.Context, limit, offset int) ([]*domain.Book, error) {
	rows, err := r.queries.ListBooks(ctx, generated.ListBooksParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, translateError(err)
	}

	books := make([]*domain.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, rowToBook(row))
	}

	return books, nil
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// BookRepository implements usecase.BookRepository.
type BookRepository struct {
	store *Store
}

func NewBookRepository(store *Store) *BookRepository {
	return &BookRepository{store: store}
}

func (r *BookRepository) Create(_ context.Context, book *domain.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.books[book.ID]; ok {
		return fmt.Errorf("memory: duplicate book id %s", book.ID)
	}
	r.store.books[book.ID] = *book
	return nil
}

func (r *BookRepository) GetByID(_ context.Context, id string) (*domain.Book, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return &b, nil
}

func (r *BookRepository) GetByIDs(_ context.Context, ids []string) ([]*domain.Book, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	books := make([]*domain.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := r.store.books[id]; ok {
			books = append(books, &b)
		}
	}
	return books, nil
}

// GetByIDForUpdate takes the book lock even when the book does not exist, so
// that returns of a deleted book's loan are still serialized.
func (r *BookRepository) GetByIDForUpdate(ctx context.Context, t usecase.Transaction, id string) (*domain.Book, error) {
	tx, err := asTx(t)
	if err != nil {
		return nil, err
	}
	if err := tx.lock(ctx, bookLockKey(id)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *BookRepository) SetAvailable(ctx context.Context, t usecase.Transaction, id string, available bool, updatedAt time.Time) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}
	if err := tx.lock(ctx, bookLockKey(id)); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return tx.enqueue(func(s *Store) {
		b, ok := s.books[id]
		if !ok {
			return
		}
		b.Available = available
		b.UpdatedAt = updatedAt
		s.books[id] = b
	})
}

// Update rewrites the catalog fields. The stored availability is kept.
func (r *BookRepository) Update(_ context.Context, book *domain.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.books[book.ID]
	if !ok {
		return domain.ErrBookNotFound
	}
	existing.Title = book.Title
	existing.Author = book.Author
	existing.ISBN = book.ISBN
	existing.UpdatedAt = book.UpdatedAt
	r.store.books[book.ID] = existing
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, t usecase.Transaction, id string) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}
	if err := tx.lock(ctx, bookLockKey(id)); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return tx.enqueue(func(s *Store) {
		delete(s.books, id)
	})
}

func (r *BookRepository) List(_ context.Context, limit, offset int) ([]*domain.Book, error) {
	r.store.mu.RLock()
	all := make([]domain.Book, 0, len(r.store.books))
	for _, b := range r.store.books {
		all = append(all, b)
	}
	r.store.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return page(all, limit, offset), nil
}

func page[T any](all []T, limit, offset int) []*T {
	if offset >= len(all) {
		return []*T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*T, 0, end-offset)
	for i := offset; i < end; i++ {
		v := all[i]
		out = append(out, &v)
	}
	return out
}

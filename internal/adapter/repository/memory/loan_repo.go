package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository. Loan rows are guarded by
// the lock of the book they reference.
type LoanRepository struct {
	store *Store
}

func NewLoanRepository(store *Store) *LoanRepository {
	return &LoanRepository{store: store}
}

func (r *LoanRepository) Create(ctx context.Context, t usecase.Transaction, loan *domain.Loan) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}
	if err := tx.lock(ctx, bookLockKey(loan.BookID)); err != nil {
		return err
	}

	r.store.mu.RLock()
	_, taken := r.store.openByBook[loan.BookID]
	r.store.mu.RUnlock()
	if taken {
		return domain.ErrBookUnavailable
	}

	row := *loan
	return tx.enqueue(func(s *Store) {
		s.loans[row.ID] = row
		s.openByBook[row.BookID] = row.ID
	})
}

func (r *LoanRepository) GetOpenByBookForUpdate(ctx context.Context, t usecase.Transaction, bookID string) (*domain.Loan, error) {
	tx, err := asTx(t)
	if err != nil {
		return nil, err
	}
	if err := tx.lock(ctx, bookLockKey(bookID)); err != nil {
		return nil, err
	}
	return r.FindOpenByBook(ctx, bookID)
}

func (r *LoanRepository) GetOpenByUserAndBookForUpdate(ctx context.Context, t usecase.Transaction, userID, bookID string) (*domain.Loan, error) {
	loan, err := r.GetOpenByBookForUpdate(ctx, t, bookID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != userID {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

func (r *LoanRepository) Close(ctx context.Context, t usecase.Transaction, id string, returnedAt time.Time) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	loan, ok := r.store.loans[id]
	r.store.mu.RUnlock()
	if !ok {
		return domain.ErrLoanNotFound
	}

	if err := tx.lock(ctx, bookLockKey(loan.BookID)); err != nil {
		return err
	}

	// Re-read under the book lock.
	r.store.mu.RLock()
	loan = r.store.loans[id]
	r.store.mu.RUnlock()
	if !loan.IsOpen() {
		return domain.ErrNoOpenLoan
	}

	return tx.enqueue(func(s *Store) {
		l, ok := s.loans[id]
		if !ok || !l.IsOpen() {
			return
		}
		at := returnedAt
		l.ReturnedAt = &at
		s.loans[id] = l
		if s.openByBook[l.BookID] == id {
			delete(s.openByBook, l.BookID)
		}
	})
}

func (r *LoanRepository) FindOpenByBook(_ context.Context, bookID string) (*domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.openByBook[bookID]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	loan := r.store.loans[id]
	return &loan, nil
}

func (r *LoanRepository) ListOpenByUser(_ context.Context, userID string) ([]*domain.Loan, error) {
	r.store.mu.RLock()
	var open []domain.Loan
	for _, id := range r.store.openByBook {
		if l := r.store.loans[id]; l.UserID == userID {
			open = append(open, l)
		}
	}
	r.store.mu.RUnlock()

	sortNewestFirst(open)
	return page(open, 0, 0), nil
}

func (r *LoanRepository) ListByUser(_ context.Context, userID string, after *usecase.LoanCursor, limit int) ([]*domain.Loan, error) {
	r.store.mu.RLock()
	var loans []domain.Loan
	for _, l := range r.store.loans {
		if l.UserID == userID {
			loans = append(loans, l)
		}
	}
	r.store.mu.RUnlock()

	sortNewestFirst(loans)

	start := 0
	if after != nil {
		start = sort.Search(len(loans), func(i int) bool {
			return olderThan(loans[i], after.BorrowedAt, after.ID)
		})
	}

	return page(loans, limit, start), nil
}

func (r *LoanRepository) OpenBookIDs(_ context.Context) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := make([]string, 0, len(r.store.openByBook))
	for bookID := range r.store.openByBook {
		ids = append(ids, bookID)
	}
	sort.Strings(ids)
	return ids, nil
}

// sortNewestFirst orders by (BorrowedAt, ID) descending.
func sortNewestFirst(loans []domain.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		return olderThan(loans[j], loans[i].BorrowedAt, loans[i].ID)
	})
}

func olderThan(l domain.Loan, at time.Time, id string) bool {
	if l.BorrowedAt.Equal(at) {
		return l.ID < id
	}
	return l.BorrowedAt.Before(at)
}

package memory

import (
	"context"
	"sort"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Username == user.Username {
			return domain.ErrUsernameTaken
		}
	}
	r.store.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetByIDForShare takes the user lock. The keyed mutex has no shared mode,
// so borrows by the same user queue behind each other.
func (r *UserRepository) GetByIDForShare(ctx context.Context, t usecase.Transaction, id string) (*domain.User, error) {
	return r.GetByIDForUpdate(ctx, t, id)
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, t usecase.Transaction, id string) (*domain.User, error) {
	tx, err := asTx(t)
	if err != nil {
		return nil, err
	}
	if err := tx.lock(ctx, userLockKey(id)); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Delete(ctx context.Context, t usecase.Transaction, id string) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}
	if err := tx.lock(ctx, userLockKey(id)); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return tx.enqueue(func(s *Store) {
		delete(s.users, id)
	})
}

func (r *UserRepository) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	r.store.mu.RLock()
	all := make([]domain.User, 0, len(r.store.users))
	for _, u := range r.store.users {
		all = append(all, u)
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

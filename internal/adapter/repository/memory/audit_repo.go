package memory

import (
	"context"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	store *Store
}

func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

func (r *AuditRepository) Create(_ context.Context, log *domain.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audit = append(r.store.audit, *log)
	return nil
}

func (r *AuditRepository) CreateTx(_ context.Context, t usecase.Transaction, log *domain.AuditLog) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}

	row := *log
	return tx.enqueue(func(s *Store) {
		s.audit = append(s.audit, row)
	})
}

// List returns matching entries, newest first.
func (r *AuditRepository) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []domain.AuditLog
	for i := len(r.store.audit) - 1; i >= 0; i-- {
		a := r.store.audit[i]
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && a.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && a.ResourceType != filter.ResourceType {
			continue
		}
		if filter.ResourceID != "" && a.ResourceID != filter.ResourceID {
			continue
		}
		if filter.StartDate != nil && a.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && a.CreatedAt.After(*filter.EndDate) {
			continue
		}
		matched = append(matched, a)
	}

	return page(matched, filter.Limit, filter.Offset), nil
}

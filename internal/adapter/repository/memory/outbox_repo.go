package memory

import (
	"context"
	"time"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

func (r *OutboxRepository) Create(_ context.Context, t usecase.Transaction, event *domain.OutboxEvent) error {
	tx, err := asTx(t)
	if err != nil {
		return err
	}

	row := *event
	return tx.enqueue(func(s *Store) {
		s.outbox = append(s.outbox, row)
	})
}

func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	events := make([]*domain.OutboxEvent, 0)
	for _, e := range r.store.outbox {
		if e.Published {
			continue
		}
		if limit > 0 && len(events) >= limit {
			break
		}
		ev := e
		events = append(events, &ev)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.outbox {
		if r.store.outbox[i].ID == id {
			at := publishedAt
			r.store.outbox[i].Published = true
			r.store.outbox[i].PublishedAt = &at
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.outbox[:0]
	for _, e := range r.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.outbox = kept
	return nil
}

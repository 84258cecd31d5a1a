package postgres

import (
	"context"
	"time"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/usecase"
)

var _ usecase.OutboxRepository = NullOutboxRepository{}

// NullOutboxRepository discards lending events. Borrow and return use it
// when EVENTS_ENABLED is false so no outbox rows pile up undrained.
type NullOutboxRepository struct{}

func NewNullOutboxRepository() NullOutboxRepository { return NullOutboxRepository{} }

func (NullOutboxRepository) Create(context.Context, usecase.Transaction, *domain.OutboxEvent) error {
	return nil
}

func (NullOutboxRepository) GetUnpublished(context.Context, int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (NullOutboxRepository) MarkPublished(context.Context, string, time.Time) error { return nil }

func (NullOutboxRepository) DeletePublished(context.Context, time.Time) error { return nil }

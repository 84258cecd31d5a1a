package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/booklend/internal/domain"
)

var outboxColumns = []string{"id", "aggregate_id", "aggregate_type", "event_type", "payload", "created_at", "published_at", "published"}

func TestOutboxRepository_CreateInsideTransaction(t *testing.T) {
	mock := newMockPool(t)
	tx := beginMockTx(t, mock)
	repo := NewOutboxRepository(mock)

	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
		WithArgs("e1", "l1", "loan", domain.EventTypeLoanBorrowed, []byte(`{"bookId":"b1"}`), timeToPgTimestamptz(createdAt), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), tx, &domain.OutboxEvent{
		ID:            "e1",
		AggregateID:   "l1",
		AggregateType: "loan",
		EventType:     domain.EventTypeLoanBorrowed,
		Payload:       map[string]any{"bookId": "b1"},
		CreatedAt:     createdAt,
	})
	require.NoError(t, err)
	assertExpectations(t, mock)
}

func TestOutboxRepository_GetUnpublishedDecodesPayload(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox_events")).
		WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow("e1", "l1", "loan", domain.EventTypeLoanReturned, []byte(`{"bookId":"b1"}`),
				timeToPgTimestamptz(createdAt), pgtype.Timestamptz{}, false))

	events, err := repo.GetUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b1", events[0].Payload["bookId"])
	assert.Nil(t, events[0].PublishedAt)
	assertExpectations(t, mock)
}

func TestOutboxRepository_GetUnpublishedRejectsCorruptPayload(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox_events")).
		WithArgs(int32(5)).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow("e1", "l1", "loan", domain.EventTypeLoanReturned, []byte(`{`),
				timeToPgTimestamptz(time.Now()), pgtype.Timestamptz{}, false))

	_, err := repo.GetUnpublished(context.Background(), 5)
	assert.ErrorContains(t, err, "e1")
}

func TestOutboxRepository_GetUnpublishedZeroLimit(t *testing.T) {
	mock := newMockPool(t)
	events, err := NewOutboxRepository(mock).GetUnpublished(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assertExpectations(t, mock)
}

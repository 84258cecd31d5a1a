package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/booklend/internal/domain"
	"github.com/iho/booklend/internal/infrastructure/metrics"
)

// DefaultEventChannel is the pub/sub channel lending events go to.
const DefaultEventChannel = "booklend:events"

// eventMessage is the wire form of an outbox event on the channel.
type eventMessage struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// EventPublisher publishes outbox events with Redis PUBLISH.
type EventPublisher struct {
	client  redis.Cmdable
	channel string
	metrics *metrics.Metrics
}

// NewEventPublisher creates a publisher on channel, or DefaultEventChannel
// when channel is empty.
func NewEventPublisher(client redis.Cmdable, channel string, m *metrics.Metrics) *EventPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &EventPublisher{client: client, channel: channel, metrics: m}
}

// Publish sends one event. Subscribers that are not connected miss it; the
// outbox row is the durable record.
func (p *EventPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	msg, err := json.Marshal(eventMessage{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return err
	}

	err = p.client.Publish(ctx, p.channel, msg).Err()
	observe(p.metrics, "publish", err)
	return err
}

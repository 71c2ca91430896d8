// Package events publishes intake domain events.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/welldanyogia/webrana-crm-intake/internal/domain"
)

// DefaultQueue is the Redis list events are pushed to.
const DefaultQueue = "intake-events"

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Envelope is the wire form of an event.
type Envelope struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Payload    domain.Event `json:"payload"`
}

// NewEnvelope wraps an event with a fresh id.
func NewEnvelope(event domain.Event, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.New().String(),
		Type:       event.EventName(),
		OccurredAt: now.UTC(),
		Payload:    event,
	}
}

// RedisPublisher pushes JSON envelopes onto a Redis list for downstream consumers.
type RedisPublisher struct {
	rdb       *redis.Client
	queueName string
}

// NewRedisPublisher creates a publisher targeting queueName.
func NewRedisPublisher(rdb *redis.Client, queueName string) *RedisPublisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &RedisPublisher{rdb: rdb, queueName: queueName}
}

// Publish serialises the event and LPUSHes it to the queue.
func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	env := NewEnvelope(event, time.Now())
	msg, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(msg)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Debug("published event to queue",
		"event_id", env.ID,
		"type", env.Type,
		"queue", p.queueName,
	)
	return nil
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	env := NewEnvelope(event, time.Now())
	p.logger.InfoContext(ctx, "domain event",
		"event_id", env.ID,
		"type", env.Type,
		"payload", env.Payload,
	)
	return nil
}

// Multi fans an event out to every publisher. All publishers are tried;
// failures are joined.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

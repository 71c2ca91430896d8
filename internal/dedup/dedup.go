// Package dedup drops redelivered inbound emails by Message-ID using a
// Redis key with TTL.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a seen Message-ID is remembered.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "intake:seen:"
)

// Filter tracks which Message-IDs have already been accepted.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis. A non-positive ttl uses DefaultTTL.
func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{rdb: rdb, ttl: ttl}
}

// IsNew returns true if the Message-ID has NOT been seen before, marking it
// as seen atomically. An empty id is always new.
func (f *Filter) IsNew(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return true, nil
	}
	key := keyPrefix + messageID

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Forget removes a Message-ID so a failed delivery can be retried.
func (f *Filter) Forget(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	if err := f.rdb.Del(ctx, keyPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

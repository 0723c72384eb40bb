package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventDeduplicator remembers processed gateway events so replays can be
// acknowledged early. Correctness never depends on it; the status guard does.
type EventDeduplicator interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

// RedisDeduplicator keeps processed event keys in Redis with a TTL
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDeduplicator creates a deduplicator over a Redis client
func NewRedisDeduplicator(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, ttl: ttl, prefix: "gateway_event:"}
}

// Seen reports whether the key was remembered
func (d *RedisDeduplicator) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Remember stores the key until the TTL elapses
func (d *RedisDeduplicator) Remember(ctx context.Context, key string) error {
	if err := d.client.Set(ctx, d.prefix+key, 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// NopDeduplicator never reports a duplicate
type NopDeduplicator struct{}

// Seen implements EventDeduplicator
func (NopDeduplicator) Seen(context.Context, string) (bool, error) { return false, nil }

// Remember implements EventDeduplicator
func (NopDeduplicator) Remember(context.Context, string) error { return nil }

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/slotbook/booking-engine/internal/config"
	"github.com/slotbook/booking-engine/internal/models"
)

// Rate limit scopes
const (
	RateScopeBooking = "booking"
	RateScopeLogin   = "login"
)

// RateCounter counts hits on a key inside a fixed window
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// RedisRateCounter implements RateCounter with INCR and EXPIRE
type RedisRateCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisRateCounter creates a counter over a Redis client
func NewRedisRateCounter(client *redis.Client) *RedisRateCounter {
	return &RedisRateCounter{client: client, prefix: "rate_limit:"}
}

// Hit increments the key and returns the count and the time left in the window
func (r *RedisRateCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	key = r.prefix + key

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		return count, window, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis ttl: %w", err)
	}
	// A key without expiry would lock the caller out forever
	if ttl < 0 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

type rateRule struct {
	max    int64
	window time.Duration
}

// RateLimitService enforces per-scope request budgets
type RateLimitService struct {
	counter RateCounter
	rules   map[string]rateRule
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(counter RateCounter, cfg config.RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		counter: counter,
		rules: map[string]rateRule{
			RateScopeBooking: {max: int64(cfg.BookingRequests), window: cfg.BookingWindow},
			RateScopeLogin:   {max: int64(cfg.LoginAttempts), window: cfg.LoginWindow},
		},
	}
}

// Check records one request for identifier in scope. It returns a
// *models.RateLimitError once the budget for the current window is spent.
// Unknown scopes and non-positive limits are unlimited.
func (s *RateLimitService) Check(ctx context.Context, scope, identifier string) error {
	rule, ok := s.rules[scope]
	if !ok || rule.max <= 0 || rule.window <= 0 {
		return nil
	}

	count, resetIn, err := s.counter.Hit(ctx, scope+":"+identifier, rule.window)
	if err != nil {
		return fmt.Errorf("failed to check %s rate limit: %w", scope, err)
	}
	if count > rule.max {
		return &models.RateLimitError{Scope: scope, RetryAfter: resetIn}
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/slotbook/booking-engine/internal/config"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCounter is a fixed-window counter that never expires
type memoryCounter struct {
	hits map[string]int64
	keys []string
	err  error
}

func (m *memoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.hits[key]++
	m.keys = append(m.keys, key)
	return m.hits[key], window / 2, nil
}

func rateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		BookingRequests: 2,
		BookingWindow:   10 * time.Minute,
		LoginAttempts:   0,
		LoginWindow:     15 * time.Minute,
	}
}

func TestRateLimitService_Check(t *testing.T) {
	counter := &memoryCounter{hits: map[string]int64{}}
	service := NewRateLimitService(counter, rateLimitConfig())
	ctx := context.Background()

	require.NoError(t, service.Check(ctx, RateScopeBooking, "203.0.113.7"))
	require.NoError(t, service.Check(ctx, RateScopeBooking, "203.0.113.7"))

	err := service.Check(ctx, RateScopeBooking, "203.0.113.7")
	var rlErr *models.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, RateScopeBooking, rlErr.Scope)
	assert.Equal(t, 5*time.Minute, rlErr.RetryAfter)
	assert.Equal(t, "booking:203.0.113.7", counter.keys[0])

	// Budgets are per identifier
	assert.NoError(t, service.Check(ctx, RateScopeBooking, "198.51.100.1"))
}

func TestRateLimitService_UnlimitedScopes(t *testing.T) {
	counter := &memoryCounter{hits: map[string]int64{}}
	service := NewRateLimitService(counter, rateLimitConfig())

	for i := 0; i < 5; i++ {
		assert.NoError(t, service.Check(context.Background(), RateScopeLogin, "203.0.113.7"))
		assert.NoError(t, service.Check(context.Background(), "export", "203.0.113.7"))
	}
	assert.Empty(t, counter.keys)
}

func TestRateLimitService_CounterError(t *testing.T) {
	service := NewRateLimitService(&memoryCounter{err: errors.New("connection refused")}, rateLimitConfig())

	err := service.Check(context.Background(), RateScopeBooking, "203.0.113.7")
	require.Error(t, err)
	var rlErr *models.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
	assert.Contains(t, err.Error(), "connection refused")
}

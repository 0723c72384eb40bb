package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBlocked struct{}

func (failingBlocked) ListConflicting(context.Context, uuid.UUID, time.Time, time.Time) ([]models.BlockedSlot, error) {
	return nil, errors.New("connection reset")
}

func TestOverlaps(t *testing.T) {
	ten := mustTime("2030-01-07T10:00:00Z")
	eleven := ten.Add(time.Hour)

	assert.True(t, Overlaps(ten.Add(30*time.Minute), eleven, ten, eleven))
	assert.True(t, Overlaps(ten.Add(-time.Hour), eleven.Add(time.Hour), ten, eleven))
	assert.False(t, Overlaps(ten.Add(-time.Hour), ten, ten, eleven), "abutting before")
	assert.False(t, Overlaps(eleven, eleven.Add(time.Hour), ten, eleven), "abutting after")
}

func TestSlotConflictChecker_BlockedIntervals(t *testing.T) {
	tenantID := uuid.New()
	store := newMemoryStore(tenantID)
	ten := mustTime("2030-01-07T10:00:00Z")
	store.addBlocked(ten, ten.Add(time.Hour))
	checker := NewSlotConflictChecker(store, store)
	ctx := context.Background()

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		available bool
	}{
		{"inside blocked", ten.Add(30 * time.Minute), ten.Add(time.Hour), false},
		{"covers blocked", ten.Add(-time.Hour), ten.Add(2 * time.Hour), false},
		{"ends where blocked starts", ten.Add(-time.Hour), ten, true},
		{"starts where blocked ends", ten.Add(time.Hour), ten.Add(2 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := checker.IsAvailable(ctx, tenantID, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.available, ok)
		})
	}
}

func TestSlotConflictChecker_OverlappingBlocksActAsUnion(t *testing.T) {
	tenantID := uuid.New()
	store := newMemoryStore(tenantID)
	ten := mustTime("2030-01-07T10:00:00Z")
	// [10:00, 11:00) and [10:30, 12:00) cover [10:00, 12:00)
	store.addBlocked(ten, ten.Add(time.Hour))
	store.addBlocked(ten.Add(30*time.Minute), ten.Add(2*time.Hour))
	checker := NewSlotConflictChecker(store, store)
	ctx := context.Background()

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		available bool
	}{
		{"inside first only", ten, ten.Add(20 * time.Minute), false},
		{"across the seam", ten.Add(45 * time.Minute), ten.Add(90 * time.Minute), false},
		{"inside second only", ten.Add(100 * time.Minute), ten.Add(2 * time.Hour), false},
		{"covers the union", ten.Add(-time.Hour), ten.Add(3 * time.Hour), false},
		{"ends at union start", ten.Add(-time.Hour), ten, true},
		{"starts at union end", ten.Add(2 * time.Hour), ten.Add(3 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := checker.IsAvailable(ctx, tenantID, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.available, ok)
		})
	}
}

func TestSlotConflictChecker_OtherTenantIgnored(t *testing.T) {
	store := newMemoryStore(uuid.New())
	ten := mustTime("2030-01-07T10:00:00Z")
	store.addBlocked(ten, ten.Add(time.Hour))
	checker := NewSlotConflictChecker(store, nil)

	ok, err := checker.IsAvailable(context.Background(), uuid.New(), ten, ten.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSlotConflictChecker_ActiveBookings(t *testing.T) {
	tenantID := uuid.New()
	store := newMemoryStore(tenantID)
	booking, _ := store.addPending("50", "2.50")
	checker := NewSlotConflictChecker(store, store)
	ctx := context.Background()

	ok, err := checker.IsAvailable(ctx, tenantID, booking.StartTime, booking.EndTime)
	require.NoError(t, err)
	assert.False(t, ok, "pending booking holds the slot")

	store.bookings[booking.ID].Status = models.BookingStatusCancelled
	ok, err = checker.IsAvailable(ctx, tenantID, booking.StartTime, booking.EndTime)
	require.NoError(t, err)
	assert.True(t, ok, "cancelled booking releases the slot")
}

func TestSlotConflictChecker_Errors(t *testing.T) {
	ten := mustTime("2030-01-07T10:00:00Z")

	_, err := NewSlotConflictChecker(newMemoryStore(uuid.New()), nil).IsAvailable(context.Background(), uuid.New(), ten, ten)
	assert.Error(t, err, "empty range")

	_, err = NewSlotConflictChecker(failingBlocked{}, nil).IsAvailable(context.Background(), uuid.New(), ten, ten.Add(time.Hour))
	assert.ErrorContains(t, err, "connection reset")
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/booking-engine/internal/models"
)

// BlockedIntervalLookup lists a tenant's blocked slots that may intersect a range
type BlockedIntervalLookup interface {
	ListConflicting(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]models.BlockedSlot, error)
}

// BookingOverlapCounter counts slot-occupying bookings intersecting a range
type BookingOverlapCounter interface {
	CountOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (int, error)
}

// Overlaps reports whether [start, end) and [bStart, bEnd) intersect.
// Abutting intervals do not overlap.
func Overlaps(start, end, bStart, bEnd time.Time) bool {
	return start.Before(bEnd) && end.After(bStart)
}

// SlotConflictChecker decides whether a time range may be reserved for a tenant
type SlotConflictChecker struct {
	blocked  BlockedIntervalLookup
	bookings BookingOverlapCounter
}

// NewSlotConflictChecker creates a checker. bookings may be nil, in which case
// only blocked intervals are considered.
func NewSlotConflictChecker(blocked BlockedIntervalLookup, bookings BookingOverlapCounter) *SlotConflictChecker {
	return &SlotConflictChecker{blocked: blocked, bookings: bookings}
}

// IsAvailable reports whether [start, end) is free for the tenant
func (c *SlotConflictChecker) IsAvailable(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (bool, error) {
	if !end.After(start) {
		return false, fmt.Errorf("slot end %s must be after start %s", end, start)
	}

	intervals, err := c.blocked.ListConflicting(ctx, tenantID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to load blocked intervals: %w", err)
	}
	for _, b := range intervals {
		if b.TenantID == tenantID && Overlaps(start, end, b.StartTime, b.EndTime) {
			return false, nil
		}
	}

	if c.bookings == nil {
		return true, nil
	}
	count, err := c.bookings.CountOverlapping(ctx, tenantID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return count == 0, nil
}

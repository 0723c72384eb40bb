package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotbook/booking-engine/internal/models"
)

// BlockedSlotRepository handles tenant-declared unavailable intervals
type BlockedSlotRepository struct {
	db *sqlx.DB
}

// NewBlockedSlotRepository creates a new BlockedSlotRepository
func NewBlockedSlotRepository(db *sqlx.DB) *BlockedSlotRepository {
	return &BlockedSlotRepository{db: db}
}

const blockedSlotColumns = `id, tenant_id, start_time, end_time, reason, created_by, created_at`

// ListConflicting returns the tenant's blocked slots intersecting [start, end)
func (r *BlockedSlotRepository) ListConflicting(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]models.BlockedSlot, error) {
	var slots []models.BlockedSlot
	query := `SELECT ` + blockedSlotColumns + `
		FROM blocked_slots
		WHERE tenant_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`

	if err := r.db.SelectContext(ctx, &slots, query, tenantID, start, end); err != nil {
		return nil, fmt.Errorf("failed to list conflicting blocked slots: %w", err)
	}
	return slots, nil
}

// ListByTenant returns blocked slots ending after from, soonest first
func (r *BlockedSlotRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, from time.Time) ([]models.BlockedSlot, error) {
	slots := []models.BlockedSlot{}
	query := `SELECT ` + blockedSlotColumns + `
		FROM blocked_slots
		WHERE tenant_id = $1 AND end_time > $2
		ORDER BY start_time ASC`

	if err := r.db.SelectContext(ctx, &slots, query, tenantID, from); err != nil {
		return nil, fmt.Errorf("failed to list blocked slots: %w", err)
	}
	return slots, nil
}

// Create inserts a blocked slot
func (r *BlockedSlotRepository) Create(ctx context.Context, slot *models.BlockedSlot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	slot.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blocked_slots (id, tenant_id, start_time, end_time, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		slot.ID, slot.TenantID, slot.StartTime, slot.EndTime, slot.Reason, slot.CreatedBy, slot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create blocked slot: %w", err)
	}
	return nil
}

// Delete removes a blocked slot of the tenant and reports whether a row was removed
func (r *BlockedSlotRepository) Delete(ctx context.Context, tenantID, slotID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blocked_slots WHERE id = $1 AND tenant_id = $2`, slotID, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete blocked slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

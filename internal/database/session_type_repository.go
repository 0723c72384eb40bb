package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotbook/booking-engine/internal/models"
)

// SessionTypeRepository reads session types
type SessionTypeRepository struct {
	db *sqlx.DB
}

// NewSessionTypeRepository creates a new SessionTypeRepository
func NewSessionTypeRepository(db *sqlx.DB) *SessionTypeRepository {
	return &SessionTypeRepository{db: db}
}

// GetForTenant returns an active session type owned by the tenant, or nil.
// A session type of another tenant is indistinguishable from a missing one.
func (r *SessionTypeRepository) GetForTenant(ctx context.Context, tenantID, sessionTypeID uuid.UUID) (*models.SessionType, error) {
	var st models.SessionType
	query := `
		SELECT id, tenant_id, name, description, duration_minutes, price, currency,
			capacity, meeting_link, is_active, created_at, updated_at
		FROM session_types
		WHERE id = $1 AND tenant_id = $2 AND is_active = TRUE`

	err := r.db.GetContext(ctx, &st, query, sessionTypeID, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session type: %w", err)
	}
	return &st, nil
}

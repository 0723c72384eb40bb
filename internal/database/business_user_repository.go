package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotbook/booking-engine/internal/models"
)

// BusinessUserRepository handles tenant staff logins
type BusinessUserRepository struct {
	db *sqlx.DB
}

// NewBusinessUserRepository creates a new BusinessUserRepository
func NewBusinessUserRepository(db *sqlx.DB) *BusinessUserRepository {
	return &BusinessUserRepository{db: db}
}

// GetByEmail returns an active business user, or nil
func (r *BusinessUserRepository) GetByEmail(ctx context.Context, email string) (*models.BusinessUser, error) {
	var user models.BusinessUser
	query := `
		SELECT id, tenant_id, email, password_hash, full_name, is_active, last_login_at, created_at, updated_at
		FROM business_users
		WHERE email = $1 AND is_active = TRUE`

	err := r.db.GetContext(ctx, &user, query, models.NormalizeEmail(email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business user: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin stamps the login time
func (r *BusinessUserRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE business_users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

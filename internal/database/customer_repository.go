package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/slotbook/booking-engine/internal/models"
)

// CustomerRepository handles customer database operations
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, email, first_name, last_name, phone, timezone, created_at, updated_at`

// FindOrCreateByEmail returns the customer with this email, creating it when absent.
// An existing row keeps its data; only empty name or phone columns are filled in.
func (r *CustomerRepository) FindOrCreateByEmail(ctx context.Context, email string, firstName, lastName, phone *string) (*models.Customer, error) {
	var customer models.Customer
	now := time.Now()
	query := `
		INSERT INTO customers (id, email, first_name, last_name, phone, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'UTC', $6, $6)
		ON CONFLICT (email) DO UPDATE SET
			first_name = COALESCE(customers.first_name, EXCLUDED.first_name),
			last_name = COALESCE(customers.last_name, EXCLUDED.last_name),
			phone = COALESCE(customers.phone, EXCLUDED.phone)
		RETURNING ` + customerColumns

	err := r.db.GetContext(ctx, &customer, query,
		uuid.New(), models.NormalizeEmail(email), firstName, lastName, phone, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}
	return &customer, nil
}

// GetByID returns a customer, or nil
func (r *CustomerRepository) GetByID(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	err := r.db.GetContext(ctx, &customer, query, customerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &customer, nil
}

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

// PaymentRepository handles payment reads. Payment writes happen only inside
// BookingRepository transactions together with the booking they belong to.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, tenant_id, booking_id, customer_id, amount, platform_fee, business_amount,
	currency, status, checkout_session_id, gateway_charge_id, payment_method,
	failure_reason, metadata, created_at, updated_at`

// GetByBookingID returns the payment of a booking, or nil when the booking has none
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1`

	err := r.db.GetContext(ctx, &payment, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by booking: %w", err)
	}
	return &payment, nil
}

// GetByCheckoutSessionID returns the payment correlated to a gateway checkout session
func (r *PaymentRepository) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	var payment models.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_session_id = $1`

	err := r.db.GetContext(ctx, &payment, query, sessionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by checkout session: %w", err)
	}
	return &payment, nil
}

// ListStalePending returns PENDING payments created before the cutoff, oldest first
func (r *PaymentRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Payment, error) {
	var payments []*models.Payment
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3`

	if err := r.db.SelectContext(ctx, &payments, query, models.PaymentStatusPending, createdBefore, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale pending payments: %w", err)
	}
	return payments, nil
}

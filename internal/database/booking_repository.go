package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/slotbook/booking-engine/internal/models"
)

// BookingRepository handles booking and booking+payment database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	b.id, b.tenant_id, b.customer_id, b.session_type_id, b.start_time, b.end_time,
	b.status, b.participants, b.notes, b.customer_timezone,
	b.cancellation_reason, b.cancelled_at, b.cancelled_by, b.created_at, b.updated_at`

func activeStatuses() interface{} {
	labels := make([]string, 0, len(models.ActiveBookingStatuses))
	for _, s := range models.ActiveBookingStatuses {
		labels = append(labels, string(s))
	}
	return pq.Array(labels)
}

// ============================================================================
// ADMISSION
// ============================================================================

// CreateBooking persists a booking and, for priced bookings, its pending payment
// in one transaction. The slot is re-checked under a per-tenant advisory lock so
// two concurrent admissions for the same range cannot both commit.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking *models.Booking, payment *models.Payment) error {
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if payment != nil {
		payment.CreatedAt = now
		payment.UpdatedAt = now
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, booking.TenantID.String()); err != nil {
			return fmt.Errorf("failed to lock tenant schedule: %w", err)
		}

		var conflicts int
		err := tx.GetContext(ctx, &conflicts, `
			SELECT
				(SELECT COUNT(*) FROM blocked_slots
				 WHERE tenant_id = $1 AND start_time < $3 AND end_time > $2)
				+
				(SELECT COUNT(*) FROM bookings
				 WHERE tenant_id = $1 AND start_time < $3 AND end_time > $2 AND status = ANY($4))`,
			booking.TenantID, booking.StartTime, booking.EndTime, activeStatuses())
		if err != nil {
			return fmt.Errorf("failed to re-check slot: %w", err)
		}
		if conflicts > 0 {
			return models.ErrSlotUnavailable
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bookings (
				id, tenant_id, customer_id, session_type_id, start_time, end_time,
				status, participants, notes, customer_timezone, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			booking.ID, booking.TenantID, booking.CustomerID, booking.SessionTypeID,
			booking.StartTime, booking.EndTime, booking.Status, booking.Participants,
			booking.Notes, booking.CustomerTimezone, booking.CreatedAt, booking.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		if payment == nil {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (
				id, tenant_id, booking_id, customer_id, amount, platform_fee, business_amount,
				currency, status, checkout_session_id, metadata, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			payment.ID, payment.TenantID, payment.BookingID, payment.CustomerID,
			payment.Amount, payment.PlatformFee, payment.BusinessAmount,
			payment.Currency, payment.Status, payment.CheckoutSessionID, payment.Metadata,
			payment.CreatedAt, payment.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		return nil
	})
}

// CountOverlapping counts slot-occupying bookings of a tenant that intersect [start, end)
func (r *BookingRepository) CountOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE tenant_id = $1 AND start_time < $3 AND end_time > $2 AND status = ANY($4)`

	if err := r.db.GetContext(ctx, &count, query, tenantID, start, end, activeStatuses()); err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// ============================================================================
// LOOKUPS
// ============================================================================

// GetByID returns a booking of the tenant, or nil when absent
func (r *BookingRepository) GetByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1 AND b.tenant_id = $2`

	err := r.db.GetContext(ctx, &booking, query, bookingID, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// FindByID returns a booking regardless of tenant, or nil when absent.
// Callers must verify the tenant themselves.
func (r *BookingRepository) FindByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`

	err := r.db.GetContext(ctx, &booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

// bookingDetailsRow maps the joined booking/customer/session type columns
type bookingDetailsRow struct {
	models.Booking
	Customer    models.Customer    `db:"customer"`
	SessionType models.SessionType `db:"session_type"`
	TenantName  string             `db:"tenant_name"`
	TenantEmail string             `db:"tenant_email"`
}

func (row *bookingDetailsRow) details() *models.BookingDetails {
	return &models.BookingDetails{
		Booking:     row.Booking,
		Customer:    row.Customer,
		SessionType: row.SessionType,
		TenantName:  row.TenantName,
		TenantEmail: row.TenantEmail,
	}
}

const bookingDetailsSelect = `
	SELECT ` + bookingColumns + `,
		c.id AS "customer.id", c.email AS "customer.email",
		c.first_name AS "customer.first_name", c.last_name AS "customer.last_name",
		c.phone AS "customer.phone", c.timezone AS "customer.timezone",
		c.created_at AS "customer.created_at", c.updated_at AS "customer.updated_at",
		st.id AS "session_type.id", st.tenant_id AS "session_type.tenant_id",
		st.name AS "session_type.name", st.description AS "session_type.description",
		st.duration_minutes AS "session_type.duration_minutes", st.price AS "session_type.price",
		st.currency AS "session_type.currency", st.capacity AS "session_type.capacity",
		st.meeting_link AS "session_type.meeting_link", st.is_active AS "session_type.is_active",
		st.created_at AS "session_type.created_at", st.updated_at AS "session_type.updated_at",
		t.name AS tenant_name, t.email AS tenant_email
	FROM bookings b
	JOIN customers c ON c.id = b.customer_id
	JOIN session_types st ON st.id = b.session_type_id
	JOIN tenants t ON t.id = b.tenant_id`

// GetDetails returns a booking with its customer, session type and tenant, or nil when absent
func (r *BookingRepository) GetDetails(ctx context.Context, bookingID uuid.UUID) (*models.BookingDetails, error) {
	var row bookingDetailsRow
	err := r.db.GetContext(ctx, &row, bookingDetailsSelect+` WHERE b.id = $1`, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking details: %w", err)
	}
	return row.details(), nil
}

// ListUpcoming returns non-cancelled bookings of a tenant starting at or after from
func (r *BookingRepository) ListUpcoming(ctx context.Context, tenantID uuid.UUID, from time.Time, limit int) ([]*models.BookingDetails, error) {
	var rows []bookingDetailsRow
	query := bookingDetailsSelect + `
		WHERE b.tenant_id = $1 AND b.start_time >= $2 AND b.status = ANY($3)
		ORDER BY b.start_time ASC
		LIMIT $4`

	if err := r.db.SelectContext(ctx, &rows, query, tenantID, from, activeStatuses(), limit); err != nil {
		return nil, fmt.Errorf("failed to list upcoming bookings: %w", err)
	}

	result := make([]*models.BookingDetails, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].details())
	}
	return result, nil
}

// ============================================================================
// GUARDED TRANSITIONS
// ============================================================================

// GatewayTransition describes a gateway-driven move out of PENDING_PAYMENT
type GatewayTransition struct {
	BookingID          uuid.UUID
	To                 models.BookingStatus
	CancellationReason *string
	CancelledBy        *string
	Payment            models.PaymentOutcome
}

// ApplyGatewayTransition moves the booking out of PENDING_PAYMENT and records the
// payment outcome in one transaction. When the booking is no longer pending nothing
// is written and applied is false; current then holds the persisted status.
func (r *BookingRepository) ApplyGatewayTransition(ctx context.Context, t GatewayTransition) (applied bool, current models.BookingStatus, err error) {
	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var cancelledAt *time.Time
		if t.To == models.BookingStatusCancelled {
			now := time.Now()
			cancelledAt = &now
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET status = $2,
				cancellation_reason = COALESCE($3, cancellation_reason),
				cancelled_at = COALESCE($4, cancelled_at),
				cancelled_by = COALESCE($5, cancelled_by),
				updated_at = NOW()
			WHERE id = $1 AND status = $6`,
			t.BookingID, t.To, t.CancellationReason, cancelledAt, t.CancelledBy,
			models.BookingStatusPendingPayment)
		if err != nil {
			return fmt.Errorf("failed to transition booking: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			if err := tx.GetContext(ctx, &current, `SELECT status FROM bookings WHERE id = $1`, t.BookingID); err != nil {
				return fmt.Errorf("failed to read booking status: %w", err)
			}
			return nil
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE payments
			SET status = $2,
				gateway_charge_id = COALESCE($3, gateway_charge_id),
				payment_method = COALESCE($4, payment_method),
				failure_reason = $5,
				platform_fee = $6,
				business_amount = $7,
				amount = $8,
				updated_at = NOW()
			WHERE booking_id = $1 AND status = $9`,
			t.BookingID, t.Payment.Status, t.Payment.GatewayChargeID, t.Payment.PaymentMethod,
			t.Payment.FailureReason, t.Payment.PlatformFee, t.Payment.BusinessAmount,
			t.Payment.Amount(), models.PaymentStatusPending)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		rows, _ = result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("no pending payment for booking %s", t.BookingID)
		}

		applied = true
		current = t.To
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return applied, current, nil
}

// CancelBooking cancels a PENDING_PAYMENT or CONFIRMED booking of the tenant and
// releases its pending payment. A booking in any other state is left untouched and
// reported through applied=false with its current status.
func (r *BookingRepository) CancelBooking(ctx context.Context, tenantID, bookingID uuid.UUID, reason, cancelledBy string) (applied bool, current models.BookingStatus, err error) {
	err = withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET status = $3, cancellation_reason = $4, cancelled_at = NOW(), cancelled_by = $5, updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2 AND status = ANY($6)`,
			bookingID, tenantID, models.BookingStatusCancelled, reason, cancelledBy, activeStatuses())
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			err := tx.GetContext(ctx, &current, `SELECT status FROM bookings WHERE id = $1 AND tenant_id = $2`, bookingID, tenantID)
			if err == sql.ErrNoRows {
				return models.NewNotFound("booking", bookingID)
			}
			if err != nil {
				return fmt.Errorf("failed to read booking status: %w", err)
			}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE payments SET status = $2, updated_at = NOW()
			WHERE booking_id = $1 AND status = $3`,
			bookingID, models.PaymentStatusCancelled, models.PaymentStatusPending)
		if err != nil {
			return fmt.Errorf("failed to release payment: %w", err)
		}

		applied = true
		current = models.BookingStatusCancelled
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return applied, current, nil
}

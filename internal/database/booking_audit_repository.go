package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
)

// BookingAuditRepository writes the append-only booking audit trail
type BookingAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewBookingAuditRepository creates a new booking audit repository
func NewBookingAuditRepository(db *sqlx.DB, logger *logrus.Logger) *BookingAuditRepository {
	return &BookingAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log inserts an audit entry
func (r *BookingAuditRepository) Log(ctx context.Context, audit *models.BookingAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO booking_audits (
			id, tenant_id, booking_id, action, source, actor_id,
			from_status, to_status, gateway_event_id, details,
			ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.TenantID, audit.BookingID, audit.Action, audit.Source, audit.ActorID,
		audit.FromStatus, audit.ToStatus, audit.GatewayEventID, audit.Details,
		audit.IPAddress, audit.UserAgent, audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log booking audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"action":     audit.Action,
		"booking_id": audit.BookingID,
	}).Debug("Booking audit logged")

	return nil
}

// ListByBooking returns the trail of one booking, oldest first
func (r *BookingAuditRepository) ListByBooking(ctx context.Context, tenantID, bookingID uuid.UUID) ([]*models.BookingAudit, error) {
	var audits []*models.BookingAudit
	query := `
		SELECT id, tenant_id, booking_id, action, source, actor_id,
			from_status, to_status, gateway_event_id, details,
			ip_address, user_agent, created_at
		FROM booking_audits
		WHERE booking_id = $1 AND tenant_id = $2
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &audits, query, bookingID, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list booking audits: %w", err)
	}
	return audits, nil
}

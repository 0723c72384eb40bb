package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for handling JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface.
// Returns JSON as string for compatibility with pgx simple protocol mode.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// BookingAuditAction identifies what happened to a booking
type BookingAuditAction string

const (
	AuditBookingCreated         BookingAuditAction = "booking_created"
	AuditBookingConfirmed       BookingAuditAction = "booking_confirmed"
	AuditPaymentFailed          BookingAuditAction = "payment_failed"
	AuditBookingCancelled       BookingAuditAction = "booking_cancelled"
	AuditStaleGatewayEvent      BookingAuditAction = "stale_gateway_event"
	AuditReconciliationMismatch BookingAuditAction = "reconciliation_mismatch"
	AuditNotificationFailed     BookingAuditAction = "notification_failed"
	AuditGatewayCorrelationMiss BookingAuditAction = "gateway_correlation_missing"
)

// BookingAuditSource identifies who triggered the audited action
type BookingAuditSource string

const (
	AuditSourceCustomer BookingAuditSource = "customer"
	AuditSourceBusiness BookingAuditSource = "business"
	AuditSourceGateway  BookingAuditSource = "payment_gateway"
	AuditSourceSystem   BookingAuditSource = "system"
)

// BookingAudit is an append-only record of a booking event
type BookingAudit struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	TenantID  *uuid.UUID         `json:"tenant_id,omitempty" db:"tenant_id"`
	BookingID *uuid.UUID         `json:"booking_id,omitempty" db:"booking_id"`
	Action    BookingAuditAction `json:"action" db:"action"`
	Source    BookingAuditSource `json:"source" db:"source"`
	ActorID   *uuid.UUID         `json:"actor_id,omitempty" db:"actor_id"`

	FromStatus *string `json:"from_status,omitempty" db:"from_status"`
	ToStatus   *string `json:"to_status,omitempty" db:"to_status"`

	GatewayEventID *string `json:"gateway_event_id,omitempty" db:"gateway_event_id"`
	Details        JSONB   `json:"details,omitempty" db:"details"`

	IPAddress *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string `json:"user_agent,omitempty" db:"user_agent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewBookingAudit creates an audit entry with required fields
func NewBookingAudit(action BookingAuditAction, source BookingAuditSource) *BookingAudit {
	return &BookingAudit{
		ID:        uuid.New(),
		Action:    action,
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// ForBooking sets the booking and tenant the entry belongs to
func (a *BookingAudit) ForBooking(tenantID, bookingID uuid.UUID) *BookingAudit {
	a.TenantID = &tenantID
	a.BookingID = &bookingID
	return a
}

// SetTransition records the status change
func (a *BookingAudit) SetTransition(from, to BookingStatus) *BookingAudit {
	f, t := string(from), string(to)
	a.FromStatus = &f
	a.ToStatus = &t
	return a
}

// SetActor sets the user that triggered the action
func (a *BookingAudit) SetActor(actorID uuid.UUID) *BookingAudit {
	a.ActorID = &actorID
	return a
}

// SetGatewayEvent sets the gateway event id
func (a *BookingAudit) SetGatewayEvent(eventID string) *BookingAudit {
	if eventID != "" {
		a.GatewayEventID = &eventID
	}
	return a
}

// SetDetail adds one key to the details payload
func (a *BookingAudit) SetDetail(key string, value interface{}) *BookingAudit {
	if a.Details == nil {
		a.Details = JSONB{}
	}
	a.Details[key] = value
	return a
}

// SetClient sets request origin details
func (a *BookingAudit) SetClient(ip, userAgent string) *BookingAudit {
	if ip != "" {
		a.IPAddress = &ip
	}
	if userAgent != "" {
		a.UserAgent = &userAgent
	}
	return a
}

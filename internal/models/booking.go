package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING STATUS (matches bookings.status CHECK constraint)
// ============================================================================

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT" // Waiting for the gateway
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"       // Paid, or no payment required
	BookingStatusPaymentFailed  BookingStatus = "PAYMENT_FAILED"  // Gateway reported a failed charge
	BookingStatusCancelled      BookingStatus = "CANCELLED"       // Checkout expired or manual cancel
)

// AllBookingStatuses lists every known status
var AllBookingStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusConfirmed,
	BookingStatusPaymentFailed,
	BookingStatusCancelled,
}

// ActiveBookingStatuses are the statuses that occupy a slot
var ActiveBookingStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusConfirmed,
}

// ParseBookingStatus converts a stored label into a BookingStatus
func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, status := range AllBookingStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// OccupiesSlot reports whether a booking in this status blocks its time range
func (s BookingStatus) OccupiesSlot() bool {
	return s == BookingStatusPendingPayment || s == BookingStatusConfirmed
}

// Scan implements sql.Scanner and rejects unknown labels
func (s *BookingStatus) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into BookingStatus", value)
	}
	parsed, err := ParseBookingStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer
func (s BookingStatus) Value() (driver.Value, error) {
	if _, err := ParseBookingStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

// ============================================================================
// BOOKING
// ============================================================================

// Booking represents one reservation of a session type by a customer
type Booking struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	TenantID           uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	CustomerID         uuid.UUID     `json:"customer_id" db:"customer_id"`
	SessionTypeID      uuid.UUID     `json:"session_type_id" db:"session_type_id"`
	StartTime          time.Time     `json:"start_time" db:"start_time"`
	EndTime            time.Time     `json:"end_time" db:"end_time"`
	Status             BookingStatus `json:"status" db:"status"`
	Participants       int           `json:"participants" db:"participants"`
	Notes              *string       `json:"notes,omitempty" db:"notes"`
	CustomerTimezone   *string       `json:"customer_timezone,omitempty" db:"customer_timezone"`
	CancellationReason *string       `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy        *string       `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// ConfirmationNumber is the short reference shown to customers
func (b *Booking) ConfirmationNumber() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(b.ID.String(), "-", "")[:8])
}

// BookingDetails is a booking joined with the customer and session type it references
type BookingDetails struct {
	Booking     Booking     `json:"booking"`
	Customer    Customer    `json:"customer"`
	SessionType SessionType `json:"session_type"`
	TenantName  string      `json:"tenant_name"`
	TenantEmail string      `json:"tenant_email"`
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// CustomerIdentity is the inline identity sent by customers without an account
type CustomerIdentity struct {
	FirstName string `json:"first_name" binding:"omitempty,max=100"`
	LastName  string `json:"last_name" binding:"omitempty,max=100"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
}

// CreateBookingRequest is the body of a create-booking call
type CreateBookingRequest struct {
	SessionTypeID    uuid.UUID  `json:"session_type_id" binding:"required"`
	StartTime        int64      `json:"start_time" binding:"required"` // epoch milliseconds
	Participants     int        `json:"participants" binding:"omitempty,min=1,max=100"`
	Notes            *string    `json:"notes,omitempty" binding:"omitempty,max=2000"`
	CustomerTimezone *string    `json:"customer_timezone,omitempty" binding:"omitempty,timezone"`
	CustomerID       *uuid.UUID `json:"customer_id,omitempty"`
	CustomerIdentity
}

// Start returns the requested start as a UTC time
func (r *CreateBookingRequest) Start() time.Time {
	return time.UnixMilli(r.StartTime).UTC()
}

// CheckoutInfo is returned when the booking waits for payment
type CheckoutInfo struct {
	CheckoutSessionID string `json:"checkout_session_id"`
	RedirectURL       string `json:"redirect_url,omitempty"`
	Amount            string `json:"amount"`
	PlatformFee       string `json:"platform_fee"`
	BusinessAmount    string `json:"business_amount"`
	Currency          string `json:"currency"`
}

// CreateBookingResponse is returned by the admission endpoints
type CreateBookingResponse struct {
	Booking            *Booking      `json:"booking"`
	ConfirmationNumber string        `json:"confirmation_number"`
	Payment            *CheckoutInfo `json:"payment,omitempty"`
}

// CancelBookingRequest is the body of a manual cancel
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING ENGINE ERRORS
// ============================================================================

var (
	// ErrSlotUnavailable is returned when the requested range overlaps a blocked interval or booking
	ErrSlotUnavailable = errors.New("requested time slot is unavailable")

	// ErrGatewayCorrelationMissing is returned when a gateway event references no known booking
	ErrGatewayCorrelationMissing = errors.New("gateway event has no usable booking reference")

	// ErrInvalidPrice is returned for negative prices
	ErrInvalidPrice = errors.New("price must not be negative")

	// ErrCustomerRequired is returned when neither a customer id nor an email was supplied
	ErrCustomerRequired = errors.New("customer email or customer id is required")

	// ErrPaymentsDisabled is returned by the gateway when no keys are configured
	ErrPaymentsDisabled = errors.New("payments are disabled")

	// ErrInvalidEventSignature is returned when a webhook cannot be verified with the gateway
	ErrInvalidEventSignature = errors.New("gateway event could not be verified")

	// ErrGatewayUnavailable is returned when the gateway cannot be reached or fails server-side
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// NotFoundError means a tenant-scoped lookup found nothing
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFound builds a NotFoundError for an id
func NewNotFound(resource string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StaleTransitionError means a guarded update found the booking in another state
type StaleTransitionError struct {
	BookingID uuid.UUID
	Expected  []BookingStatus
	Current   BookingStatus
}

func (e *StaleTransitionError) Error() string {
	return fmt.Sprintf("booking %s is %s, expected one of %v", e.BookingID, e.Current, e.Expected)
}

// NotificationFailureError wraps a failed confirmation dispatch
type NotificationFailureError struct {
	BookingID uuid.UUID
	Err       error
}

func (e *NotificationFailureError) Error() string {
	return fmt.Sprintf("confirmation notification for booking %s failed: %v", e.BookingID, e.Err)
}

func (e *NotificationFailureError) Unwrap() error {
	return e.Err
}

// RateLimitError means a caller spent its request budget for a scope
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many %s requests, try again in %s", e.Scope, e.RetryAfter.Round(time.Second))
}

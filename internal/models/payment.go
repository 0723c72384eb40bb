package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the state of a payment row
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"   // Checkout session opened
	PaymentStatusCompleted PaymentStatus = "COMPLETED" // Charge captured
	PaymentStatusFailed    PaymentStatus = "FAILED"    // Charge declined
	PaymentStatusCancelled PaymentStatus = "CANCELLED" // Checkout expired or booking cancelled
)

// Payment records money owed for a booking.
// Amount is always PlatformFee + BusinessAmount.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	TenantID          uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	BookingID         uuid.UUID       `json:"booking_id" db:"booking_id"`
	CustomerID        uuid.UUID       `json:"customer_id" db:"customer_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	PlatformFee       decimal.Decimal `json:"platform_fee" db:"platform_fee"`
	BusinessAmount    decimal.Decimal `json:"business_amount" db:"business_amount"`
	Currency          string          `json:"currency" db:"currency"`
	Status            PaymentStatus   `json:"status" db:"status"`
	CheckoutSessionID string          `json:"checkout_session_id" db:"checkout_session_id"`
	GatewayChargeID   *string         `json:"gateway_charge_id,omitempty" db:"gateway_charge_id"`
	PaymentMethod     *string         `json:"payment_method,omitempty" db:"payment_method"`
	FailureReason     *string         `json:"failure_reason,omitempty" db:"failure_reason"`
	Metadata          JSONB           `json:"metadata,omitempty" db:"metadata"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// PaymentOutcome is the column set written to a payment when the gateway reports
type PaymentOutcome struct {
	Status          PaymentStatus
	GatewayChargeID *string
	PaymentMethod   *string
	FailureReason   *string
	PlatformFee     decimal.Decimal
	BusinessAmount  decimal.Decimal
}

// Amount is the derived total for the outcome
func (o PaymentOutcome) Amount() decimal.Decimal {
	return o.PlatformFee.Add(o.BusinessAmount)
}

// PaymentConfigResponse tells clients whether checkout is required
type PaymentConfigResponse struct {
	PaymentsEnabled       bool   `json:"payments_enabled"`
	PlatformFeePercentage string `json:"platform_fee_percentage"`
	Currency              string `json:"currency"`
	PublicKey             string `json:"public_key,omitempty"`
}

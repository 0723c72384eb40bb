package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayEventKind is the normalized kind of a payment gateway callback
type GatewayEventKind string

const (
	GatewayPaymentSucceeded           GatewayEventKind = "payment_succeeded"
	GatewayPaymentFailed              GatewayEventKind = "payment_failed"
	GatewayCheckoutExpiredOrCancelled GatewayEventKind = "checkout_expired_or_cancelled"
	GatewayEventIgnored               GatewayEventKind = "ignored"
)

// Checkout metadata keys attached to every checkout session
const (
	MetadataBookingID      = "booking_id"
	MetadataTenantID       = "tenant_id"
	MetadataSessionTypeID  = "session_type_id"
	MetadataPlatformFee    = "platform_fee"
	MetadataBusinessAmount = "business_amount"
	MetadataFeePercentage  = "fee_percentage" // stored on the payment row only
)

// GatewayEvent is a verified gateway callback reduced to what reconciliation needs
type GatewayEvent struct {
	EventID           string
	Kind              GatewayEventKind
	CheckoutSessionID string
	ChargeID          string
	ChargeStatus      string
	PaymentMethod     string
	FailureCode       string
	FailureMessage    string
	CapturedAmount    *decimal.Decimal
	Currency          string
	Metadata          map[string]string
}

// BookingID extracts the booking correlation from metadata
func (e *GatewayEvent) BookingID() (uuid.UUID, bool) {
	return e.metadataUUID(MetadataBookingID)
}

// TenantID extracts the tenant correlation from metadata
func (e *GatewayEvent) TenantID() (uuid.UUID, bool) {
	return e.metadataUUID(MetadataTenantID)
}

// MetadataDecimal parses a money figure from metadata
func (e *GatewayEvent) MetadataDecimal(key string) (decimal.Decimal, bool) {
	raw, ok := e.Metadata[key]
	if !ok || raw == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// DedupKey identifies the event for replay suppression
func (e *GatewayEvent) DedupKey() string {
	if e.EventID != "" {
		return e.EventID
	}
	return string(e.Kind) + ":" + e.CheckoutSessionID + ":" + e.ChargeID
}

func (e *GatewayEvent) metadataUUID(key string) (uuid.UUID, bool) {
	raw, ok := e.Metadata[key]
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CheckoutSession is what the gateway returns when a checkout is opened
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// CheckoutRequest carries everything needed to open a checkout session
type CheckoutRequest struct {
	BookingID      uuid.UUID
	TenantID       uuid.UUID
	SessionTypeID  uuid.UUID
	Description    string
	CustomerEmail  string
	Amount         decimal.Decimal
	PlatformFee    decimal.Decimal
	BusinessAmount decimal.Decimal
	Currency       string
}

// Metadata builds the string map echoed back by the gateway
func (r *CheckoutRequest) Metadata() map[string]string {
	return map[string]string{
		MetadataBookingID:      r.BookingID.String(),
		MetadataTenantID:       r.TenantID.String(),
		MetadataSessionTypeID:  r.SessionTypeID.String(),
		MetadataPlatformFee:    r.PlatformFee.StringFixed(2),
		MetadataBusinessAmount: r.BusinessAmount.StringFixed(2),
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/config"
	"github.com/slotbook/booking-engine/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Omise event keys and charge statuses the reconciler cares about
const (
	omiseKeyChargeComplete = "charge.complete"
	omiseKeyChargeExpire   = "charge.expire"
	omiseKeyChargeReverse  = "charge.reverse"

	omiseChargeSuccessful = "successful"
	omiseChargeFailed     = "failed"
	omiseChargeExpired    = "expired"
	omiseChargeReversed   = "reversed"
)

var minorUnits = decimal.NewFromInt(100)

// OmiseGateway opens hosted checkouts and verifies callbacks against the Omise API.
// The charge id doubles as the checkout session id.
type OmiseGateway struct {
	client     *omise.Client
	sourceType string
	returnURL  string
	logger     *logrus.Logger
}

// NewOmiseGateway creates a gateway from payment configuration
func NewOmiseGateway(cfg config.PaymentConfig, logger *logrus.Logger) (*OmiseGateway, error) {
	if cfg.PublicKey == "" || cfg.SecretKey == "" {
		return nil, models.ErrPaymentsDisabled
	}

	client, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	client.SetDebug(false)

	return &OmiseGateway{
		client:     client,
		sourceType: cfg.SourceType,
		returnURL:  cfg.ReturnURL,
		logger:     logger,
	}, nil
}

// CreateCheckoutSession creates a source and a charge for it, returning the
// charge id and the URL the customer must visit to pay
func (g *OmiseGateway) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error) {
	_, span := tracer.Start(ctx, "OmiseGateway.CreateCheckoutSession", trace.WithAttributes(
		attribute.String("booking_id", req.BookingID.String()),
	))
	defer span.End()

	amount := ToMinorUnits(req.Amount)
	currency := strings.ToLower(req.Currency)

	src := &omise.Source{}
	if err := g.client.Do(src, &operations.CreateSource{
		Type:     g.sourceType,
		Amount:   amount,
		Currency: currency,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create source: %w", err)
	}

	metadata := make(map[string]any, 5)
	for k, v := range req.Metadata() {
		metadata[k] = v
	}

	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.CreateCharge{
		Amount:      amount,
		Currency:    currency,
		Source:      src.ID,
		ReturnURI:   g.returnURL,
		Description: req.Description,
		Metadata:    metadata,
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create charge: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"charge_id":  ch.ID,
		"status":     string(ch.Status),
	}).Debug("Checkout session created")

	return &models.CheckoutSession{ID: ch.ID, RedirectURL: ch.AuthorizeURI}, nil
}

// VerifyEvent re-fetches a webhook event by id. An event the gateway does not
// know yields ErrInvalidEventSignature; transport and server failures yield
// ErrGatewayUnavailable.
func (g *OmiseGateway) VerifyEvent(ctx context.Context, eventID string) (*models.GatewayEvent, error) {
	_, span := tracer.Start(ctx, "OmiseGateway.VerifyEvent", trace.WithAttributes(
		attribute.String("event_id", eventID),
	))
	defer span.End()

	if eventID == "" {
		return nil, models.ErrInvalidEventSignature
	}

	ev := &omise.Event{}
	if err := g.client.Do(ev, &operations.RetrieveEvent{EventID: eventID}); err != nil {
		log := g.logger.WithError(err).WithField("event_id", eventID)
		if isUnknownObject(err) {
			log.Warn("Gateway does not know the event")
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidEventSignature, err)
		}
		log.Error("Gateway event retrieval failed")
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnavailable, err)
	}

	if !strings.HasPrefix(ev.Key, "charge.") {
		return &models.GatewayEvent{EventID: ev.ID, Kind: models.GatewayEventIgnored}, nil
	}

	// Data is an untyped map; round-trip it into a charge
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal charge: %w", err)
	}

	return EventFromCharge(ev.ID, ev.Key, &ch), nil
}

// ChargeEvent polls a charge and reports its state as a gateway event
func (g *OmiseGateway) ChargeEvent(ctx context.Context, chargeID string) (*models.GatewayEvent, error) {
	_, span := tracer.Start(ctx, "OmiseGateway.ChargeEvent", trace.WithAttributes(
		attribute.String("charge_id", chargeID),
	))
	defer span.End()

	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retrieve charge %s: %w", chargeID, err)
	}

	status := string(ch.Status)
	return EventFromCharge("sweep:"+ch.ID+":"+status, omiseKeyChargeComplete, ch), nil
}

// EventFromCharge normalizes an Omise charge under an event key
func EventFromCharge(eventID, key string, ch *omise.Charge) *models.GatewayEvent {
	status := string(ch.Status)
	event := &models.GatewayEvent{
		EventID:           eventID,
		Kind:              KindForCharge(key, status),
		CheckoutSessionID: ch.ID,
		ChargeID:          ch.ID,
		ChargeStatus:      status,
		Currency:          strings.ToUpper(ch.Currency),
		Metadata:          make(map[string]string, len(ch.Metadata)),
	}

	for k, v := range ch.Metadata {
		if s, ok := v.(string); ok {
			event.Metadata[k] = s
		}
	}
	if ch.Source != nil && ch.Source.Type != "" {
		event.PaymentMethod = ch.Source.Type
	}
	if ch.FailureCode != nil {
		event.FailureCode = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		event.FailureMessage = *ch.FailureMessage
	}
	if status == omiseChargeSuccessful {
		captured := FromMinorUnits(ch.Amount)
		event.CapturedAmount = &captured
	}
	return event
}

// KindForCharge maps an Omise event key and charge status to an event kind
func KindForCharge(key, status string) models.GatewayEventKind {
	switch key {
	case omiseKeyChargeExpire, omiseKeyChargeReverse:
		return models.GatewayCheckoutExpiredOrCancelled
	case omiseKeyChargeComplete:
		switch status {
		case omiseChargeSuccessful:
			return models.GatewayPaymentSucceeded
		case omiseChargeFailed:
			return models.GatewayPaymentFailed
		case omiseChargeExpired, omiseChargeReversed:
			return models.GatewayCheckoutExpiredOrCancelled
		}
	}
	return models.GatewayEventIgnored
}

// ToMinorUnits converts a two-place amount to satang/cents
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).Round(0).IntPart()
}

// FromMinorUnits converts satang/cents back to a two-place amount
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// isUnknownObject reports whether the gateway answered that the object does not exist
func isUnknownObject(err error) bool {
	var apiErr *omise.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "not_found"
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/database"
	"github.com/slotbook/booking-engine/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPaymentMethod      = "card"
	defaultFailureReason      = "Payment failed during checkout"
	checkoutExpiredReason     = "Checkout expired or cancelled"
	cancelledByPaymentGateway = "payment_gateway"
)

// ReconcileOutcome says what happened to one gateway event
type ReconcileOutcome string

const (
	OutcomeApplied            ReconcileOutcome = "applied"             // Guarded transition committed
	OutcomeStale              ReconcileOutcome = "stale"               // Booking no longer pending, no-op
	OutcomeDuplicate          ReconcileOutcome = "duplicate"           // Event id already processed
	OutcomeIgnored            ReconcileOutcome = "ignored"             // Kind not handled
	OutcomeCorrelationMissing ReconcileOutcome = "correlation_missing" // No booking reference
	OutcomeNotFound           ReconcileOutcome = "not_found"           // Reference points at another tenant
	OutcomeError              ReconcileOutcome = "error"               // Store failure, logged
)

// PaymentLookup reads payment rows
type PaymentLookup interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Payment, error)
}

// PaymentReconciler applies gateway events to bookings and payments
type PaymentReconciler struct {
	bookings      BookingStore
	payments      PaymentLookup
	lifecycle     *BookingLifecycle
	fees          *FeeCalculator
	confirmations *ConfirmationSender
	dedup         EventDeduplicator
	audit         AuditRecorder
	logger        *logrus.Logger
}

// NewPaymentReconciler creates a new reconciler
func NewPaymentReconciler(
	bookings BookingStore,
	payments PaymentLookup,
	lifecycle *BookingLifecycle,
	fees *FeeCalculator,
	confirmations *ConfirmationSender,
	dedup EventDeduplicator,
	audit AuditRecorder,
	logger *logrus.Logger,
) *PaymentReconciler {
	if dedup == nil {
		dedup = NopDeduplicator{}
	}
	return &PaymentReconciler{
		bookings:      bookings,
		payments:      payments,
		lifecycle:     lifecycle,
		fees:          fees,
		confirmations: confirmations,
		dedup:         dedup,
		audit:         audit,
		logger:        logger,
	}
}

// Reconcile applies one verified gateway event. It never returns an error: every
// problem is logged and reported through the outcome so the caller can always
// acknowledge the delivery.
func (r *PaymentReconciler) Reconcile(ctx context.Context, event *models.GatewayEvent) ReconcileOutcome {
	ctx, span := tracer.Start(ctx, "PaymentReconciler.Reconcile", trace.WithAttributes(
		attribute.String("event_id", event.EventID),
		attribute.String("event_kind", string(event.Kind)),
	))
	defer span.End()

	outcome := r.reconcile(ctx, event)
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	return outcome
}

func (r *PaymentReconciler) reconcile(ctx context.Context, event *models.GatewayEvent) ReconcileOutcome {
	log := r.logger.WithFields(logrus.Fields{
		"event_id":            event.EventID,
		"event_type":          event.Kind,
		"checkout_session_id": event.CheckoutSessionID,
	})

	lifecycleEvent, ok := EventForGateway(event.Kind)
	if !ok {
		log.Debug("Gateway event kind not reconciled")
		return OutcomeIgnored
	}

	if seen, err := r.dedup.Seen(ctx, event.DedupKey()); err != nil {
		log.WithError(err).Warn("Event dedup lookup failed, continuing")
	} else if seen {
		log.Info("Duplicate gateway event acknowledged")
		return OutcomeDuplicate
	}

	// Correlation
	booking, err := r.correlate(ctx, event)
	if err != nil {
		if errors.Is(err, models.ErrGatewayCorrelationMissing) {
			log.Warn("Gateway event dropped: no matching booking")
			r.audit.Record(ctx, models.NewBookingAudit(models.AuditGatewayCorrelationMiss, models.AuditSourceGateway).
				SetGatewayEvent(event.EventID).
				SetDetail("event_type", event.Kind).
				SetDetail("checkout_session_id", event.CheckoutSessionID))
			return OutcomeCorrelationMissing
		}
		log.WithError(err).Error("Gateway event correlation failed")
		return OutcomeError
	}
	log = log.WithFields(logrus.Fields{"booking_id": booking.ID, "tenant_id": booking.TenantID})

	if tenantID, ok := event.TenantID(); ok && tenantID != booking.TenantID {
		log.WithField("event_tenant_id", tenantID).Warn("Gateway event tenant does not own booking")
		return OutcomeNotFound
	}

	// Pre-check against the read status; the store repeats it atomically
	transition, err := r.lifecycle.Apply(booking.Status, lifecycleEvent)
	if err != nil {
		r.recordStale(ctx, log, event, booking.TenantID, booking.ID, booking.Status)
		return OutcomeStale
	}

	payment, err := r.payments.GetByBookingID(ctx, booking.ID)
	if err != nil {
		log.WithError(err).Error("Failed to load payment for reconciliation")
		return OutcomeError
	}
	if payment == nil {
		log.Error("Pending booking has no payment row")
		return OutcomeError
	}

	fee, business := r.verifyFigures(ctx, log, event, booking, payment)

	change := database.GatewayTransition{
		BookingID: booking.ID,
		To:        transition.To,
		Payment: models.PaymentOutcome{
			PlatformFee:    fee,
			BusinessAmount: business,
		},
	}
	if event.ChargeID != "" {
		change.Payment.GatewayChargeID = &event.ChargeID
	}

	var action models.BookingAuditAction
	switch lifecycleEvent {
	case EventPaymentSucceeded:
		method := event.PaymentMethod
		if method == "" {
			method = defaultPaymentMethod
		}
		change.Payment.Status = models.PaymentStatusCompleted
		change.Payment.PaymentMethod = &method
		action = models.AuditBookingConfirmed
	case EventPaymentFailed:
		reason := failureReason(event)
		change.Payment.Status = models.PaymentStatusFailed
		change.Payment.FailureReason = &reason
		action = models.AuditPaymentFailed
	case EventCheckoutExpired:
		reason, by := checkoutExpiredReason, cancelledByPaymentGateway
		change.CancellationReason = &reason
		change.CancelledBy = &by
		change.Payment.Status = models.PaymentStatusCancelled
		action = models.AuditBookingCancelled
	}

	applied, current, err := r.bookings.ApplyGatewayTransition(ctx, change)
	if err != nil {
		log.WithError(err).Error("Failed to apply gateway transition")
		return OutcomeError
	}
	if !applied {
		r.recordStale(ctx, log, event, booking.TenantID, booking.ID, current)
		return OutcomeStale
	}

	log.WithFields(logrus.Fields{
		"from_status": transition.From,
		"status":      transition.To,
	}).Info("Gateway transition applied")

	r.audit.Record(ctx, models.NewBookingAudit(action, models.AuditSourceGateway).
		ForBooking(booking.TenantID, booking.ID).
		SetTransition(transition.From, transition.To).
		SetGatewayEvent(event.EventID).
		SetDetail("payment_status", change.Payment.Status).
		SetDetail("amount", change.Payment.Amount().StringFixed(2)))

	r.remember(ctx, log, event)

	if transition.Effect == EffectNotifyConfirmed {
		r.confirmations.Send(ctx, booking.TenantID, booking.ID)
	}
	return OutcomeApplied
}

// correlate finds the booking by metadata booking id, then by checkout session id
func (r *PaymentReconciler) correlate(ctx context.Context, event *models.GatewayEvent) (*models.Booking, error) {
	bookingID, ok := event.BookingID()
	if !ok && event.CheckoutSessionID != "" {
		payment, err := r.payments.GetByCheckoutSessionID(ctx, event.CheckoutSessionID)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			bookingID, ok = payment.BookingID, true
		}
	}
	if !ok {
		return nil, models.ErrGatewayCorrelationMissing
	}

	booking, err := r.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrGatewayCorrelationMissing
	}
	return booking, nil
}

// feesAtCheckout returns a calculator for the percentage recorded when the
// checkout was opened, falling back to the configured one
func (r *PaymentReconciler) feesAtCheckout(payment *models.Payment) *FeeCalculator {
	raw, ok := payment.Metadata[models.MetadataFeePercentage]
	if !ok || raw == nil {
		return r.fees
	}
	pct, err := decimal.NewFromString(fmt.Sprint(raw))
	if err != nil || pct.Equal(r.fees.Percentage()) {
		return r.fees
	}
	return NewFeeCalculator(pct)
}

// verifyFigures returns the fee and business amount to record. Figures come from
// the event metadata when present and are checked against a recomputed fee, the
// stored payment and the captured amount. Mismatches are reported, not fatal.
func (r *PaymentReconciler) verifyFigures(ctx context.Context, log *logrus.Entry, event *models.GatewayEvent, booking *models.Booking, payment *models.Payment) (decimal.Decimal, decimal.Decimal) {
	business, ok := event.MetadataDecimal(models.MetadataBusinessAmount)
	if !ok {
		business = payment.BusinessAmount
	}
	fee, ok := event.MetadataDecimal(models.MetadataPlatformFee)
	if !ok {
		fee = payment.PlatformFee
	}
	total := business.Add(fee)

	mismatches := map[string]interface{}{}
	if expected, err := r.feesAtCheckout(payment).Calculate(business); err != nil || !expected.PlatformFee.Equal(fee) {
		mismatches["recomputed_fee"] = expected.PlatformFee.StringFixed(2)
	}
	if !payment.Amount.Equal(total) {
		mismatches["stored_amount"] = payment.Amount.StringFixed(2)
	}
	if event.CapturedAmount != nil && !event.CapturedAmount.Equal(total) {
		mismatches["captured_amount"] = event.CapturedAmount.StringFixed(2)
	}

	if len(mismatches) > 0 {
		log.WithFields(logrus.Fields{
			"platform_fee":    fee.StringFixed(2),
			"business_amount": business.StringFixed(2),
			"mismatches":      mismatches,
		}).Warn("Reconciliation figures disagree")

		audit := models.NewBookingAudit(models.AuditReconciliationMismatch, models.AuditSourceGateway).
			ForBooking(booking.TenantID, booking.ID).
			SetGatewayEvent(event.EventID).
			SetDetail("platform_fee", fee.StringFixed(2)).
			SetDetail("business_amount", business.StringFixed(2))
		for k, v := range mismatches {
			audit.SetDetail(k, v)
		}
		r.audit.Record(ctx, audit)
	}
	return fee, business
}

func (r *PaymentReconciler) recordStale(ctx context.Context, log *logrus.Entry, event *models.GatewayEvent, tenantID, bookingID uuid.UUID, current models.BookingStatus) {
	stale := &models.StaleTransitionError{
		BookingID: bookingID,
		Expected:  []models.BookingStatus{models.BookingStatusPendingPayment},
		Current:   current,
	}
	log.WithField("status", current).Info("Stale gateway event ignored: " + stale.Error())

	r.audit.Record(ctx, models.NewBookingAudit(models.AuditStaleGatewayEvent, models.AuditSourceGateway).
		ForBooking(tenantID, bookingID).
		SetGatewayEvent(event.EventID).
		SetDetail("event_type", event.Kind).
		SetDetail("current_status", current))

	r.remember(ctx, log, event)
}

func (r *PaymentReconciler) remember(ctx context.Context, log *logrus.Entry, event *models.GatewayEvent) {
	if err := r.dedup.Remember(ctx, event.DedupKey()); err != nil {
		log.WithError(err).Warn("Failed to remember processed gateway event")
	}
}

func failureReason(event *models.GatewayEvent) string {
	switch {
	case event.FailureMessage != "" && event.FailureCode != "":
		return event.FailureCode + ": " + event.FailureMessage
	case event.FailureMessage != "":
		return event.FailureMessage
	case event.FailureCode != "":
		return event.FailureCode
	}
	return defaultFailureReason
}

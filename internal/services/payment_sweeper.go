package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
)

const sweepBatchSize = 100

// StalePaymentLister lists payments still waiting on the gateway
type StalePaymentLister interface {
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Payment, error)
}

// ChargePoller asks the gateway for the current state of a charge
type ChargePoller interface {
	ChargeEvent(ctx context.Context, chargeID string) (*models.GatewayEvent, error)
}

// EventReconciler applies a gateway event
type EventReconciler interface {
	Reconcile(ctx context.Context, event *models.GatewayEvent) ReconcileOutcome
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	Checked int `json:"checked"`
	Applied int `json:"applied"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// PaymentSweeper polls the gateway for payments whose webhook never arrived and
// feeds terminal charge states to the reconciler
type PaymentSweeper struct {
	payments   StalePaymentLister
	poller     ChargePoller
	reconciler EventReconciler
	after      time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewPaymentSweeper creates a sweeper for payments pending longer than after
func NewPaymentSweeper(payments StalePaymentLister, poller ChargePoller, reconciler EventReconciler, after time.Duration, logger *logrus.Logger) *PaymentSweeper {
	return &PaymentSweeper{
		payments:   payments,
		poller:     poller,
		reconciler: reconciler,
		after:      after,
		logger:     logger,
		now:        time.Now,
	}
}

// Sweep runs one pass over stale pending payments
func (s *PaymentSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	stale, err := s.payments.ListStalePending(ctx, s.now().Add(-s.after), sweepBatchSize)
	if err != nil {
		return result, err
	}

	for _, payment := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if payment.CheckoutSessionID == "" {
			continue
		}
		result.Checked++

		log := s.logger.WithFields(logrus.Fields{
			"booking_id":          payment.BookingID,
			"tenant_id":           payment.TenantID,
			"checkout_session_id": payment.CheckoutSessionID,
		})

		event, err := s.poller.ChargeEvent(ctx, payment.CheckoutSessionID)
		if err != nil {
			log.WithError(err).Warn("Charge status poll failed")
			result.Failed++
			continue
		}
		if event.Kind == models.GatewayEventIgnored {
			result.Pending++
			continue
		}
		if _, ok := event.BookingID(); !ok {
			if event.Metadata == nil {
				event.Metadata = map[string]string{}
			}
			event.Metadata[models.MetadataBookingID] = payment.BookingID.String()
		}

		switch s.reconciler.Reconcile(ctx, event) {
		case OutcomeApplied:
			result.Applied++
		case OutcomeError:
			result.Failed++
		}
	}
	return result, nil
}

package services

import (
	"fmt"

	"github.com/slotbook/booking-engine/internal/models"
)

// LifecycleEvent is something that can move a booking between statuses
type LifecycleEvent string

const (
	EventPaymentSucceeded LifecycleEvent = "payment_succeeded"
	EventPaymentFailed    LifecycleEvent = "payment_failed"
	EventCheckoutExpired  LifecycleEvent = "checkout_expired_or_cancelled"
	EventManualCancel     LifecycleEvent = "manual_cancel"
)

// SideEffect is what the caller must trigger after a transition commits
type SideEffect int

const (
	EffectNone SideEffect = iota
	EffectNotifyConfirmed
)

// Transition is the outcome of applying an event to a status
type Transition struct {
	From   models.BookingStatus
	To     models.BookingStatus
	Effect SideEffect
}

type transitionRule struct {
	to     models.BookingStatus
	effect SideEffect
}

// transitions maps each source status to the events it accepts.
// Terminal statuses accept nothing.
var transitions = map[models.BookingStatus]map[LifecycleEvent]transitionRule{
	models.BookingStatusPendingPayment: {
		EventPaymentSucceeded: {to: models.BookingStatusConfirmed, effect: EffectNotifyConfirmed},
		EventPaymentFailed:    {to: models.BookingStatusPaymentFailed},
		EventCheckoutExpired:  {to: models.BookingStatusCancelled},
		EventManualCancel:     {to: models.BookingStatusCancelled},
	},
	models.BookingStatusConfirmed: {
		EventManualCancel: {to: models.BookingStatusCancelled},
	},
	models.BookingStatusPaymentFailed: {},
	models.BookingStatusCancelled:     {},
}

// BookingLifecycle owns the legal booking status transitions. It decides, it
// does not persist; callers apply the result through a status-guarded update.
type BookingLifecycle struct{}

// NewBookingLifecycle creates the state machine
func NewBookingLifecycle() *BookingLifecycle {
	return &BookingLifecycle{}
}

// Initial picks the creation status and its side effect
func (l *BookingLifecycle) Initial(paymentRequired bool) Transition {
	if paymentRequired {
		return Transition{To: models.BookingStatusPendingPayment, Effect: EffectNone}
	}
	return Transition{To: models.BookingStatusConfirmed, Effect: EffectNotifyConfirmed}
}

// Apply returns the transition for event from status, or a StaleTransitionError
// when the status does not accept the event
func (l *BookingLifecycle) Apply(from models.BookingStatus, event LifecycleEvent) (Transition, error) {
	rules, known := transitions[from]
	if !known {
		return Transition{}, fmt.Errorf("unknown booking status %q", from)
	}
	rule, ok := rules[event]
	if !ok {
		return Transition{}, &models.StaleTransitionError{
			Current:  from,
			Expected: l.SourcesFor(event),
		}
	}
	return Transition{From: from, To: rule.to, Effect: rule.effect}, nil
}

// SourcesFor lists the statuses that accept event, in declaration order
func (l *BookingLifecycle) SourcesFor(event LifecycleEvent) []models.BookingStatus {
	var sources []models.BookingStatus
	for _, status := range models.AllBookingStatuses {
		if _, ok := transitions[status][event]; ok {
			sources = append(sources, status)
		}
	}
	return sources
}

// EventForGateway maps a normalized gateway event kind to a lifecycle event
func EventForGateway(kind models.GatewayEventKind) (LifecycleEvent, bool) {
	switch kind {
	case models.GatewayPaymentSucceeded:
		return EventPaymentSucceeded, true
	case models.GatewayPaymentFailed:
		return EventPaymentFailed, true
	case models.GatewayCheckoutExpiredOrCancelled:
		return EventCheckoutExpired, true
	}
	return "", false
}

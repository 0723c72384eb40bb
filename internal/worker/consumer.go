package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/internal/notifier"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/slotbook/booking-engine/internal/worker")

// ErrMalformedMessage marks a delivery that can never be processed
var ErrMalformedMessage = errors.New("malformed message")

// InviteRenderer renders a calendar invite for a confirmed booking
type InviteRenderer interface {
	Invite(msg *models.BookingConfirmedMessage) string
}

// Handler turns booking events into customer and business notifications
type Handler struct {
	notifier notifier.Notifier
	calendar InviteRenderer
	logger   *logrus.Logger
}

// NewHandler creates a delivery handler
func NewHandler(n notifier.Notifier, calendar InviteRenderer, logger *logrus.Logger) *Handler {
	return &Handler{notifier: n, calendar: calendar, logger: logger}
}

// Handle processes one message body published under routingKey
func (h *Handler) Handle(ctx context.Context, routingKey string, body []byte) error {
	ctx, span := tracer.Start(ctx, "worker.Handle", trace.WithAttributes(
		attribute.String("routing_key", routingKey),
	))
	defer span.End()

	switch routingKey {
	case models.RoutingKeyBookingConfirmed:
		var msg models.BookingConfirmedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		if msg.CustomerEmail == "" {
			return fmt.Errorf("%w: booking %s has no customer email", ErrMalformedMessage, msg.BookingID)
		}
		return h.notifyConfirmed(ctx, &msg)
	default:
		h.logger.WithField("routing_key", routingKey).Debug("[notify] skip unknown key")
		return nil
	}
}

// notifyConfirmed mails the customer, then the business. Only the customer
// mail decides redelivery, so a retry never repeats it after a business-side failure.
func (h *Handler) notifyConfirmed(ctx context.Context, msg *models.BookingConfirmedMessage) error {
	body := fmt.Sprintf("Hi %s,\n\nYour %s with %s is confirmed.\nWhen: %s\nConfirmation number: %s\n",
		msg.CustomerName, msg.SessionName, msg.TenantName,
		notifier.HumanTimeRange(msg.StartTime, msg.EndTime, msg.Timezone),
		msg.ConfirmationNumber)
	if msg.MeetingLink != "" {
		body += "Join: " + msg.MeetingLink + "\n"
	}

	err := h.notifier.Notify(ctx, notifier.Notification{
		To:      msg.CustomerEmail,
		ReplyTo: msg.TenantEmail,
		Subject: fmt.Sprintf("Booking confirmed: %s (%s)", msg.SessionName, msg.ConfirmationNumber),
		Body:    body,
		Attachments: []notifier.Attachment{{
			Filename:    "invite.ics",
			ContentType: "text/calendar; method=REQUEST; charset=UTF-8",
			Data:        []byte(h.calendar.Invite(msg)),
		}},
	})
	if err != nil {
		return err
	}

	if msg.TenantEmail == "" {
		return nil
	}
	if err := h.notifier.Notify(ctx, businessNotification(msg)); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": msg.BookingID,
			"tenant_id":  msg.TenantID,
		}).Error("[notify] business notification failed")
	}
	return nil
}

func businessNotification(msg *models.BookingConfirmedMessage) notifier.Notification {
	participants := msg.Participants
	if participants < 1 {
		participants = 1
	}
	return notifier.Notification{
		To:      msg.TenantEmail,
		ReplyTo: msg.CustomerEmail,
		Subject: fmt.Sprintf("New booking: %s with %s (%s)", msg.SessionName, msg.CustomerName, msg.ConfirmationNumber),
		Body: fmt.Sprintf("%s booked %s.\nWhen: %s\nParticipants: %d\nCustomer email: %s\nConfirmation number: %s\n",
			msg.CustomerName, msg.SessionName,
			notifier.HumanTimeRange(msg.StartTime, msg.EndTime, msg.Timezone),
			participants, msg.CustomerEmail, msg.ConfirmationNumber),
	}
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
// Malformed messages and second failures go to the dead letter exchange;
// a first transient failure is requeued.
func Run(ctx context.Context, deliveries <-chan amqp.Delivery, h *Handler, logger *logrus.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			settle(ctx, d, h, logger)
		}
	}
}

func settle(ctx context.Context, d amqp.Delivery, h *Handler, logger *logrus.Logger) {
	err := h.Handle(ctx, d.RoutingKey, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	requeue := !errors.Is(err, ErrMalformedMessage) && !d.Redelivered
	logger.WithError(err).WithFields(logrus.Fields{
		"routing_key": d.RoutingKey,
		"message_id":  d.MessageId,
		"requeue":     requeue,
	}).Error("[notify] handle error")
	_ = d.Nack(false, requeue)
}

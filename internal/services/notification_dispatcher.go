package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
)

// NotificationDispatcher hands a confirmed booking to the notification pipeline
type NotificationDispatcher interface {
	NotifyConfirmed(ctx context.Context, details *models.BookingDetails) error
}

// JSONPublisher publishes a JSON payload under a routing key
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// MQDispatcher publishes booking.confirmed messages to RabbitMQ
type MQDispatcher struct {
	publisher JSONPublisher
}

// NewMQDispatcher creates a dispatcher over a publisher
func NewMQDispatcher(publisher JSONPublisher) *MQDispatcher {
	return &MQDispatcher{publisher: publisher}
}

// NotifyConfirmed implements NotificationDispatcher
func (d *MQDispatcher) NotifyConfirmed(ctx context.Context, details *models.BookingDetails) error {
	msg := models.NewBookingConfirmedMessage(details)
	if err := d.publisher.PublishJSON(ctx, models.RoutingKeyBookingConfirmed, msg); err != nil {
		return fmt.Errorf("publish %s: %w", models.RoutingKeyBookingConfirmed, err)
	}
	return nil
}

// LogDispatcher writes confirmations to the log when no broker is configured
type LogDispatcher struct {
	logger *logrus.Logger
}

// NewLogDispatcher creates a log-only dispatcher
func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// NotifyConfirmed implements NotificationDispatcher
func (d *LogDispatcher) NotifyConfirmed(_ context.Context, details *models.BookingDetails) error {
	msg := models.NewBookingConfirmedMessage(details)
	d.logger.WithFields(logrus.Fields{
		"booking_id":          msg.BookingID,
		"tenant_id":           msg.TenantID,
		"confirmation_number": msg.ConfirmationNumber,
		"customer_email":      msg.CustomerEmail,
		"start_time":          msg.StartTime,
	}).Info("Booking confirmation (no broker configured)")
	return nil
}

// BookingDetailsLoader re-reads a booking with its customer and session type
type BookingDetailsLoader interface {
	GetDetails(ctx context.Context, bookingID uuid.UUID) (*models.BookingDetails, error)
}

// ConfirmationSender loads a committed booking and dispatches its confirmation.
// Failures are logged and audited, never returned.
type ConfirmationSender struct {
	loader     BookingDetailsLoader
	dispatcher NotificationDispatcher
	audit      AuditRecorder
	logger     *logrus.Logger
}

// NewConfirmationSender creates a ConfirmationSender
func NewConfirmationSender(loader BookingDetailsLoader, dispatcher NotificationDispatcher, audit AuditRecorder, logger *logrus.Logger) *ConfirmationSender {
	return &ConfirmationSender{
		loader:     loader,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger,
	}
}

// Send dispatches the confirmation for a booking
func (s *ConfirmationSender) Send(ctx context.Context, tenantID, bookingID uuid.UUID) {
	if err := s.send(ctx, bookingID); err != nil {
		failure := &models.NotificationFailureError{BookingID: bookingID, Err: err}
		s.logger.WithError(failure).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"tenant_id":  tenantID,
		}).Error("Confirmation notification failed")

		s.audit.Record(ctx, models.NewBookingAudit(models.AuditNotificationFailed, models.AuditSourceSystem).
			ForBooking(tenantID, bookingID).
			SetDetail("error", err.Error()))
	}
}

func (s *ConfirmationSender) send(ctx context.Context, bookingID uuid.UUID) error {
	details, err := s.loader.GetDetails(ctx, bookingID)
	if err != nil {
		return err
	}
	if details == nil {
		return models.NewNotFound("booking", bookingID)
	}
	return s.dispatcher.NotifyConfirmed(ctx, details)
}

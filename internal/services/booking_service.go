package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
)

const (
	defaultCancelReason   = "Cancelled by business"
	upcomingBookingsLimit = 200
)

// CancelRequest is a manual cancel issued by a business user
type CancelRequest struct {
	TenantID  uuid.UUID
	BookingID uuid.UUID
	Reason    string
	ActorID   uuid.UUID
	ClientIP  string
	UserAgent string
}

// BookingService serves booking queries and manual cancellation
type BookingService struct {
	bookings  BookingStore
	payments  PaymentLookup
	lifecycle *BookingLifecycle
	audit     AuditRecorder
	logger    *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(bookings BookingStore, payments PaymentLookup, lifecycle *BookingLifecycle, audit AuditRecorder, logger *logrus.Logger) *BookingService {
	return &BookingService{
		bookings:  bookings,
		payments:  payments,
		lifecycle: lifecycle,
		audit:     audit,
		logger:    logger,
	}
}

// GetBooking returns a booking of the tenant with its customer and session type
func (s *BookingService) GetBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.BookingDetails, error) {
	details, err := s.bookings.GetDetails(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if details == nil || details.Booking.TenantID != tenantID {
		return nil, models.NewNotFound("booking", bookingID)
	}
	return details, nil
}

// GetPublicBooking returns a booking for the customer confirmation page
func (s *BookingService) GetPublicBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingDetails, error) {
	details, err := s.bookings.GetDetails(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if details == nil {
		return nil, models.NewNotFound("booking", bookingID)
	}
	return details, nil
}

// ListUpcomingBookings returns the tenant's active bookings starting from now
func (s *BookingService) ListUpcomingBookings(ctx context.Context, tenantID uuid.UUID, from time.Time) ([]*models.BookingDetails, error) {
	bookings, err := s.bookings.ListUpcoming(ctx, tenantID, from, upcomingBookingsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// GetPaymentStatus returns the payment of a tenant's booking
func (s *BookingService) GetPaymentStatus(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Payment, error) {
	booking, err := s.bookings.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFound("booking", bookingID)
	}

	payment, err := s.payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil || payment.TenantID != tenantID {
		return nil, models.NewNotFound("payment", bookingID)
	}
	return payment, nil
}

// CancelBooking cancels a PENDING_PAYMENT or CONFIRMED booking. Any other
// status yields a StaleTransitionError.
func (s *BookingService) CancelBooking(ctx context.Context, req CancelRequest) (*models.Booking, error) {
	reason := req.Reason
	if reason == "" {
		reason = defaultCancelReason
	}

	applied, current, err := s.bookings.CancelBooking(ctx, req.TenantID, req.BookingID, reason, req.ActorID.String())
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"booking_id": req.BookingID,
		"tenant_id":  req.TenantID,
	})

	if !applied {
		log.WithField("status", current).Info("Manual cancel rejected")
		return nil, &models.StaleTransitionError{
			BookingID: req.BookingID,
			Expected:  s.lifecycle.SourcesFor(EventManualCancel),
			Current:   current,
		}
	}

	log.Info("Booking cancelled by business")

	booking, err := s.bookings.GetByID(ctx, req.TenantID, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload booking: %w", err)
	}
	if booking == nil {
		return nil, models.NewNotFound("booking", req.BookingID)
	}

	audit := models.NewBookingAudit(models.AuditBookingCancelled, models.AuditSourceBusiness).
		ForBooking(req.TenantID, req.BookingID).
		SetActor(req.ActorID).
		SetClient(req.ClientIP, req.UserAgent).
		SetDetail("reason", reason)
	to := string(models.BookingStatusCancelled)
	audit.ToStatus = &to
	s.audit.Record(ctx, audit)

	return booking, nil
}

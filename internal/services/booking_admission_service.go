package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/database"
	"github.com/slotbook/booking-engine/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/slotbook/booking-engine/internal/services")

// ============================================================================
// COLLABORATORS
// ============================================================================

// SessionTypeLookup resolves a session type within a tenant
type SessionTypeLookup interface {
	GetForTenant(ctx context.Context, tenantID, sessionTypeID uuid.UUID) (*models.SessionType, error)
}

// CustomerDirectory resolves customers
type CustomerDirectory interface {
	FindOrCreateByEmail(ctx context.Context, email string, firstName, lastName, phone *string) (*models.Customer, error)
	GetByID(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
}

// BookingStore persists bookings and applies guarded transitions
type BookingStore interface {
	BookingDetailsLoader
	BookingOverlapCounter
	CreateBooking(ctx context.Context, booking *models.Booking, payment *models.Payment) error
	GetByID(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Booking, error)
	FindByID(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	ListUpcoming(ctx context.Context, tenantID uuid.UUID, from time.Time, limit int) ([]*models.BookingDetails, error)
	ApplyGatewayTransition(ctx context.Context, t database.GatewayTransition) (bool, models.BookingStatus, error)
	CancelBooking(ctx context.Context, tenantID, bookingID uuid.UUID, reason, cancelledBy string) (bool, models.BookingStatus, error)
}

// PaymentGateway opens checkout sessions
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error)
}

// ============================================================================
// ADMISSION
// ============================================================================

// AdmissionRequest is a create-booking call after transport decoding
type AdmissionRequest struct {
	TenantID         uuid.UUID
	SessionTypeID    uuid.UUID
	Start            time.Time
	Participants     int
	Notes            *string
	CustomerTimezone *string
	CustomerID       *uuid.UUID
	Identity         models.CustomerIdentity

	Source    models.BookingAuditSource
	ActorID   *uuid.UUID
	ClientIP  string
	UserAgent string
}

// AdmissionResult is what a successful admission produced
type AdmissionResult struct {
	Booking  *models.Booking
	Payment  *models.Payment
	Checkout *models.CheckoutSession
}

// Response builds the API response for the result
func (r *AdmissionResult) Response() *models.CreateBookingResponse {
	resp := &models.CreateBookingResponse{
		Booking:            r.Booking,
		ConfirmationNumber: r.Booking.ConfirmationNumber(),
	}
	if r.Payment != nil {
		resp.Payment = &models.CheckoutInfo{
			CheckoutSessionID: r.Payment.CheckoutSessionID,
			Amount:            r.Payment.Amount.StringFixed(2),
			PlatformFee:       r.Payment.PlatformFee.StringFixed(2),
			BusinessAmount:    r.Payment.BusinessAmount.StringFixed(2),
			Currency:          r.Payment.Currency,
		}
		if r.Checkout != nil {
			resp.Payment.RedirectURL = r.Checkout.RedirectURL
		}
	}
	return resp
}

// BookingAdmissionService admits booking requests end to end
type BookingAdmissionService struct {
	sessionTypes    SessionTypeLookup
	customers       CustomerDirectory
	bookings        BookingStore
	checker         *SlotConflictChecker
	fees            *FeeCalculator
	lifecycle       *BookingLifecycle
	gateway         PaymentGateway
	confirmations   *ConfirmationSender
	audit           AuditRecorder
	logger          *logrus.Logger
	paymentsEnabled bool
	defaultCurrency string
}

// AdmissionDeps groups the admission service collaborators
type AdmissionDeps struct {
	SessionTypes    SessionTypeLookup
	Customers       CustomerDirectory
	Bookings        BookingStore
	Checker         *SlotConflictChecker
	Fees            *FeeCalculator
	Lifecycle       *BookingLifecycle
	Gateway         PaymentGateway
	Confirmations   *ConfirmationSender
	Audit           AuditRecorder
	Logger          *logrus.Logger
	PaymentsEnabled bool
	DefaultCurrency string
}

// NewBookingAdmissionService creates a new admission service
func NewBookingAdmissionService(d AdmissionDeps) *BookingAdmissionService {
	return &BookingAdmissionService{
		sessionTypes:    d.SessionTypes,
		customers:       d.Customers,
		bookings:        d.Bookings,
		checker:         d.Checker,
		fees:            d.Fees,
		lifecycle:       d.Lifecycle,
		gateway:         d.Gateway,
		confirmations:   d.Confirmations,
		audit:           d.Audit,
		logger:          d.Logger,
		paymentsEnabled: d.PaymentsEnabled,
		defaultCurrency: d.DefaultCurrency,
	}
}

// CreateBooking admits a booking request. NotFound and ErrSlotUnavailable are
// returned with no side effects. A confirmation failure never fails the call.
func (s *BookingAdmissionService) CreateBooking(ctx context.Context, req AdmissionRequest) (result *AdmissionResult, err error) {
	ctx, span := tracer.Start(ctx, "BookingAdmissionService.CreateBooking", trace.WithAttributes(
		attribute.String("tenant_id", req.TenantID.String()),
		attribute.String("session_type_id", req.SessionTypeID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := s.logger.WithFields(logrus.Fields{
		"tenant_id":       req.TenantID,
		"session_type_id": req.SessionTypeID,
	})

	// 1. Session type, scoped to the tenant
	sessionType, err := s.sessionTypes.GetForTenant(ctx, req.TenantID, req.SessionTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session type: %w", err)
	}
	if sessionType == nil {
		return nil, models.NewNotFound("session_type", req.SessionTypeID)
	}

	// 2. End derives from the session duration only
	start := req.Start.UTC()
	end := start.Add(sessionType.Duration())

	// 3. Slot
	available, err := s.checker.IsAvailable(ctx, req.TenantID, start, end)
	if err != nil {
		return nil, err
	}
	if !available {
		log.WithField("start_time", start).Info("Booking rejected: slot unavailable")
		return nil, models.ErrSlotUnavailable
	}

	// 4. Customer
	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	// 5. Fees
	fees, err := s.fees.Calculate(sessionType.Price)
	if err != nil {
		return nil, err
	}

	// 6. Initial status
	paymentRequired := s.paymentsEnabled && !sessionType.IsFree()
	initial := s.lifecycle.Initial(paymentRequired)

	participants := req.Participants
	if participants <= 0 {
		participants = 1
	}

	booking := &models.Booking{
		ID:               uuid.New(),
		TenantID:         req.TenantID,
		CustomerID:       customer.ID,
		SessionTypeID:    sessionType.ID,
		StartTime:        start,
		EndTime:          end,
		Status:           initial.To,
		Participants:     participants,
		Notes:            req.Notes,
		CustomerTimezone: req.CustomerTimezone,
	}

	result = &AdmissionResult{Booking: booking}
	if paymentRequired {
		currency := strings.ToUpper(sessionType.Currency)
		if currency == "" {
			currency = s.defaultCurrency
		}

		checkout, err := s.gateway.CreateCheckoutSession(ctx, &models.CheckoutRequest{
			BookingID:      booking.ID,
			TenantID:       booking.TenantID,
			SessionTypeID:  sessionType.ID,
			Description:    sessionType.Name + " " + booking.ConfirmationNumber(),
			CustomerEmail:  customer.Email,
			Amount:         fees.TotalAmount,
			PlatformFee:    fees.PlatformFee,
			BusinessAmount: fees.BusinessAmount,
			Currency:       currency,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create checkout session: %w", err)
		}

		result.Checkout = checkout
		result.Payment = &models.Payment{
			ID:                uuid.New(),
			TenantID:          booking.TenantID,
			BookingID:         booking.ID,
			CustomerID:        customer.ID,
			Amount:            fees.TotalAmount,
			PlatformFee:       fees.PlatformFee,
			BusinessAmount:    fees.BusinessAmount,
			Currency:          currency,
			Status:            models.PaymentStatusPending,
			CheckoutSessionID: checkout.ID,
			Metadata: models.JSONB{
				models.MetadataSessionTypeID: sessionType.ID.String(),
				models.MetadataFeePercentage: s.fees.Percentage().String(),
			},
		}
	}

	// 7. Booking and payment commit together
	if err := s.bookings.CreateBooking(ctx, booking, result.Payment); err != nil {
		if errors.Is(err, models.ErrSlotUnavailable) {
			log.WithField("start_time", start).Info("Booking rejected at commit: slot taken concurrently")
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"status":     booking.Status,
	}).Info("Booking created")

	created := string(booking.Status)
	audit := models.NewBookingAudit(models.AuditBookingCreated, req.Source).
		ForBooking(booking.TenantID, booking.ID).
		SetClient(req.ClientIP, req.UserAgent)
	audit.ToStatus = &created
	if req.ActorID != nil {
		audit.SetActor(*req.ActorID)
	}
	if result.Payment != nil {
		audit.SetDetail("amount", result.Payment.Amount.StringFixed(2)).
			SetDetail("checkout_session_id", result.Payment.CheckoutSessionID)
	}
	s.audit.Record(ctx, audit)

	if initial.Effect == EffectNotifyConfirmed {
		s.confirmations.Send(ctx, booking.TenantID, booking.ID)
	}

	return result, nil
}

func (s *BookingAdmissionService) resolveCustomer(ctx context.Context, req AdmissionRequest) (*models.Customer, error) {
	if req.CustomerID != nil {
		customer, err := s.customers.GetByID(ctx, *req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get customer: %w", err)
		}
		if customer == nil {
			return nil, models.NewNotFound("customer", *req.CustomerID)
		}
		return customer, nil
	}

	email := models.NormalizeEmail(req.Identity.Email)
	if email == "" {
		return nil, models.ErrCustomerRequired
	}

	customer, err := s.customers.FindOrCreateByEmail(ctx, email,
		optional(req.Identity.FirstName), optional(req.Identity.LastName), optional(req.Identity.Phone))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer: %w", err)
	}
	return customer, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/middleware"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/internal/services"
	"github.com/slotbook/booking-engine/internal/utils"
)

// BookingAdmitter admits new bookings
type BookingAdmitter interface {
	CreateBooking(ctx context.Context, req services.AdmissionRequest) (*services.AdmissionResult, error)
}

// BookingQueries reads and cancels existing bookings
type BookingQueries interface {
	GetBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.BookingDetails, error)
	GetPublicBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingDetails, error)
	ListUpcomingBookings(ctx context.Context, tenantID uuid.UUID, from time.Time) ([]*models.BookingDetails, error)
	GetPaymentStatus(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Payment, error)
	CancelBooking(ctx context.Context, req services.CancelRequest) (*models.Booking, error)
}

// BookingHandler handles customer and business booking endpoints
type BookingHandler struct {
	admission BookingAdmitter
	bookings  BookingQueries
	logger    *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(admission BookingAdmitter, bookings BookingQueries, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		admission: admission,
		bookings:  bookings,
		logger:    logger,
	}
}

// ============================================================================
// PUBLIC - POST /api/v1/public/tenants/:tenant_id/bookings
// ============================================================================

// CreatePublicBooking admits a booking from a customer without an account
// @Summary Create booking
// @Description Books a session type; priced sessions return a checkout redirect
// @Tags Public Booking
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.CreateBookingResponse
// @Failure 400 {object} map[string]interface{} "Validation error"
// @Failure 404 {object} map[string]interface{} "Unknown session type"
// @Failure 409 {object} map[string]interface{} "Slot unavailable"
// @Router /public/tenants/{tenant_id}/bookings [post]
func (h *BookingHandler) CreatePublicBooking(c *gin.Context) {
	tenantID, ok := uuidParam(c, "tenant_id")
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}
	if req.Email == "" {
		validationError(c, models.ErrCustomerRequired)
		return
	}

	admission := h.admissionRequest(c, tenantID, &req)
	admission.CustomerID = nil
	admission.Source = models.AuditSourceCustomer

	h.admit(c, admission)
}

// ============================================================================
// PUBLIC - GET /api/v1/public/bookings/:booking_id
// ============================================================================

// GetPublicBooking returns the customer confirmation view of a booking
// @Summary Get booking confirmation
// @Tags Public Booking
// @Produce json
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /public/bookings/{booking_id} [get]
func (h *BookingHandler) GetPublicBooking(c *gin.Context) {
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}

	details, err := h.bookings.GetPublicBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                  details.Booking.ID,
		"confirmation_number": details.Booking.ConfirmationNumber(),
		"status":              details.Booking.Status,
		"start_time":          details.Booking.StartTime,
		"end_time":            details.Booking.EndTime,
		"participants":        details.Booking.Participants,
		"session_name":        details.SessionType.Name,
		"business_name":       details.TenantName,
		"meeting_link":        details.SessionType.MeetingLink,
	})
}

// ============================================================================
// BUSINESS - GET /api/v1/business/bookings
// ============================================================================

// ListBookings lists the tenant's upcoming active bookings
// @Summary List upcoming bookings
// @Tags Business Booking
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param from query string false "RFC3339 lower bound, defaults to now"
// @Success 200 {object} map[string]interface{}
// @Router /business/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	from := time.Now()
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			validationError(c, err)
			return
		}
		from = parsed
	}

	bookings, err := h.bookings.ListUpcomingBookings(c.Request.Context(), userCtx.TenantID, from)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ============================================================================
// BUSINESS - POST /api/v1/business/bookings
// ============================================================================

// CreateBusinessBooking admits a booking on behalf of a customer
// @Summary Create booking for a customer
// @Tags Business Booking
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.CreateBookingResponse
// @Failure 409 {object} map[string]interface{} "Slot unavailable"
// @Router /business/bookings [post]
func (h *BookingHandler) CreateBusinessBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	admission := h.admissionRequest(c, userCtx.TenantID, &req)
	admission.Source = models.AuditSourceBusiness
	admission.ActorID = &userCtx.UserID

	h.admit(c, admission)
}

// ============================================================================
// BUSINESS - GET /api/v1/business/bookings/:booking_id
// ============================================================================

// GetBooking returns one booking of the tenant
// @Summary Get booking
// @Tags Business Booking
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.BookingDetails
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /business/bookings/{booking_id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}

	details, err := h.bookings.GetBooking(c.Request.Context(), userCtx.TenantID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// ============================================================================
// BUSINESS - POST /api/v1/business/bookings/:booking_id/cancel
// ============================================================================

// CancelBooking cancels a pending or confirmed booking
// @Summary Cancel booking
// @Tags Business Booking
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Param request body models.CancelBookingRequest false "Cancel reason"
// @Success 200 {object} models.Booking
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Failure 409 {object} map[string]interface{} "Booking already terminal"
// @Router /business/bookings/{booking_id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			validationError(c, err)
			return
		}
	}

	booking, err := h.bookings.CancelBooking(c.Request.Context(), services.CancelRequest{
		TenantID:  userCtx.TenantID,
		BookingID: bookingID,
		Reason:    req.Reason,
		ActorID:   userCtx.UserID,
		ClientIP:  utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ============================================================================
// BUSINESS - GET /api/v1/business/bookings/:booking_id/payment
// ============================================================================

// GetPaymentStatus returns the payment row of a booking
// @Summary Get booking payment
// @Tags Business Booking
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param booking_id path string true "Booking ID"
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]interface{} "No payment for booking"
// @Router /business/bookings/{booking_id}/payment [get]
func (h *BookingHandler) GetPaymentStatus(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	bookingID, ok := uuidParam(c, "booking_id")
	if !ok {
		return
	}

	payment, err := h.bookings.GetPaymentStatus(c.Request.Context(), userCtx.TenantID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (h *BookingHandler) admissionRequest(c *gin.Context, tenantID uuid.UUID, req *models.CreateBookingRequest) services.AdmissionRequest {
	return services.AdmissionRequest{
		TenantID:         tenantID,
		SessionTypeID:    req.SessionTypeID,
		Start:            req.Start(),
		Participants:     req.Participants,
		Notes:            req.Notes,
		CustomerTimezone: req.CustomerTimezone,
		CustomerID:       req.CustomerID,
		Identity:         req.CustomerIdentity,
		ClientIP:         utils.GetRealIP(c),
		UserAgent:        utils.GetUserAgent(c),
	}
}

func (h *BookingHandler) admit(c *gin.Context, req services.AdmissionRequest) {
	result, err := h.admission.CreateBooking(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result.Response())
}

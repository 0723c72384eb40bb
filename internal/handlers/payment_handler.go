package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/config"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/internal/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/slotbook/booking-engine/internal/handlers")

// EventVerifier re-fetches a webhook event from the gateway
type EventVerifier interface {
	VerifyEvent(ctx context.Context, eventID string) (*models.GatewayEvent, error)
}

// PaymentHandler handles payment configuration and gateway callbacks
type PaymentHandler struct {
	verifier   EventVerifier
	reconciler services.EventReconciler
	config     config.PaymentConfig
	logger     *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler. verifier may be nil when payments are disabled.
func NewPaymentHandler(verifier EventVerifier, reconciler services.EventReconciler, cfg config.PaymentConfig, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		verifier:   verifier,
		reconciler: reconciler,
		config:     cfg,
		logger:     logger,
	}
}

// webhookPayload is the envelope Omise posts; only the id is trusted
type webhookPayload struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// GetConfig returns the client-side payment configuration
// @Summary Get payment configuration
// @Tags Payments
// @Produce json
// @Success 200 {object} models.PaymentConfigResponse
// @Router /payments/config [get]
func (h *PaymentHandler) GetConfig(c *gin.Context) {
	resp := models.PaymentConfigResponse{
		PaymentsEnabled:       h.config.Enabled && h.verifier != nil,
		PlatformFeePercentage: h.config.PlatformFeePercentage.String(),
		Currency:              h.config.DefaultCurrency,
	}
	if resp.PaymentsEnabled {
		resp.PublicKey = h.config.PublicKey
	}
	c.JSON(http.StatusOK, resp)
}

// Webhook verifies a gateway callback and hands it to the reconciler. Every
// verified event is acknowledged with 200, including no-ops.
// @Summary Payment gateway webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body map[string]interface{} true "Webhook payload from gateway"
// @Success 200 {object} map[string]interface{} "Webhook processed"
// @Failure 400 {object} map[string]interface{} "Event could not be verified"
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "PaymentHandler.Webhook")
	defer span.End()

	bodyBytes, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Error("Failed to read webhook body")
		h.invalidSignature(c)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(bodyBytes, &payload); err != nil || payload.ID == "" {
		h.logger.Warn("Webhook body is not a gateway event")
		h.invalidSignature(c)
		return
	}
	span.SetAttributes(attribute.String("event_id", payload.ID), attribute.String("event_key", payload.Key))

	if h.verifier == nil {
		h.logger.WithField("event_id", payload.ID).Warn("Webhook received while payments are disabled")
		h.invalidSignature(c)
		return
	}

	event, err := h.verifier.VerifyEvent(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, models.ErrInvalidEventSignature) {
			span.SetStatus(codes.Error, "invalid signature")
			h.invalidSignature(c)
			return
		}
		// 5xx makes the gateway redeliver once it is reachable again
		if errors.Is(err, models.ErrGatewayUnavailable) {
			span.SetStatus(codes.Error, "gateway unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "gateway_unavailable",
				"message": "Could not verify the event with the payment gateway",
			})
			return
		}
		// Verified but undecodable; acknowledge so the gateway stops retrying
		h.logger.WithError(err).WithField("event_id", payload.ID).Error("Failed to decode verified gateway event")
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": services.OutcomeError})
		return
	}

	outcome := h.reconciler.Reconcile(ctx, event)
	span.SetAttributes(attribute.String("outcome", string(outcome)))

	h.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.Kind,
		"outcome":    outcome,
	}).Info("Gateway webhook processed")

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}

func (h *PaymentHandler) invalidSignature(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_signature",
		"message": "gateway event could not be verified",
	})
}

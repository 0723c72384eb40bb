package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/middleware"
	"github.com/slotbook/booking-engine/internal/services"
)

// SweepRunner triggers and reports the pending payment sweep
type SweepRunner interface {
	RunSweepNow(ctx context.Context) (services.SweepResult, error)
	GetJobStatus() map[string]interface{}
}

// PaymentSweepHandler exposes the pending payment sweep for operators
type PaymentSweepHandler struct {
	runner SweepRunner
	logger *logrus.Logger
}

// NewPaymentSweepHandler creates a new PaymentSweepHandler. runner is nil when payments are disabled.
func NewPaymentSweepHandler(runner SweepRunner, logger *logrus.Logger) *PaymentSweepHandler {
	return &PaymentSweepHandler{runner: runner, logger: logger}
}

// RunSweep polls the gateway for stale pending payments now
// @Summary Run pending payment sweep
// @Tags Business Payments
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{} "Payments disabled"
// @Router /business/payments/sweep [post]
func (h *PaymentSweepHandler) RunSweep(c *gin.Context) {
	if h.runner == nil {
		sweepUnavailable(c)
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	result, err := h.runner.RunSweepNow(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"tenant_id": userCtx.TenantID,
		"user_id":   userCtx.UserID,
		"checked":   result.Checked,
		"applied":   result.Applied,
	}).Info("Manual payment sweep triggered")

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// SweepStatus reports the sweep schedule
// @Summary Pending payment sweep status
// @Tags Business Payments
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{} "Payments disabled"
// @Router /business/payments/sweep [get]
func (h *PaymentSweepHandler) SweepStatus(c *gin.Context) {
	if h.runner == nil {
		sweepUnavailable(c)
		return
	}
	c.JSON(http.StatusOK, h.runner.GetJobStatus())
}

func sweepUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "payments_disabled",
		"message": "Payment sweep runs only when payments are enabled",
	})
}

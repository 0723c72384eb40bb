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
)

// BlockedSlotStore persists tenant blocked intervals
type BlockedSlotStore interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, from time.Time) ([]models.BlockedSlot, error)
	Create(ctx context.Context, slot *models.BlockedSlot) error
	Delete(ctx context.Context, tenantID, slotID uuid.UUID) (bool, error)
}

// BlockedSlotHandler handles business blocked slot endpoints
type BlockedSlotHandler struct {
	slots  BlockedSlotStore
	logger *logrus.Logger
}

// NewBlockedSlotHandler creates a new BlockedSlotHandler
func NewBlockedSlotHandler(slots BlockedSlotStore, logger *logrus.Logger) *BlockedSlotHandler {
	return &BlockedSlotHandler{slots: slots, logger: logger}
}

// List returns the tenant's current and future blocked slots
// @Summary List blocked slots
// @Tags Business Availability
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Router /business/blocked-slots [get]
func (h *BlockedSlotHandler) List(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	slots, err := h.slots.ListByTenant(c.Request.Context(), userCtx.TenantID, time.Now())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blocked_slots": slots,
		"count":         len(slots),
	})
}

// Create declares a blocked interval
// @Summary Create blocked slot
// @Tags Business Availability
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param request body models.CreateBlockedSlotRequest true "Blocked interval"
// @Success 201 {object} models.BlockedSlot
// @Failure 400 {object} map[string]interface{} "end_time must be after start_time"
// @Router /business/blocked-slots [post]
func (h *BlockedSlotHandler) Create(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.CreateBlockedSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	slot := &models.BlockedSlot{
		TenantID:  userCtx.TenantID,
		StartTime: req.StartTime.UTC(),
		EndTime:   req.EndTime.UTC(),
		Reason:    req.Reason,
		CreatedBy: userCtx.UserID,
	}
	if err := h.slots.Create(c.Request.Context(), slot); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"tenant_id":  userCtx.TenantID,
		"slot_id":    slot.ID,
		"start_time": slot.StartTime,
		"end_time":   slot.EndTime,
	}).Info("Blocked slot created")

	c.JSON(http.StatusCreated, slot)
}

// Delete removes a blocked interval of the tenant
// @Summary Delete blocked slot
// @Tags Business Availability
// @Param Authorization header string true "Bearer token"
// @Param slot_id path string true "Blocked slot ID"
// @Success 204
// @Failure 404 {object} map[string]interface{} "Blocked slot not found"
// @Router /business/blocked-slots/{slot_id} [delete]
func (h *BlockedSlotHandler) Delete(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	slotID, ok := uuidParam(c, "slot_id")
	if !ok {
		return
	}

	deleted, err := h.slots.Delete(c.Request.Context(), userCtx.TenantID, slotID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !deleted {
		respondError(c, h.logger, models.NewNotFound("blocked_slot", slotID))
		return
	}

	c.Status(http.StatusNoContent)
}

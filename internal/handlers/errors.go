package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/pkg/validator"
)

// RegisterValidators installs the custom binding rules on gin's validator
func RegisterValidators() error {
	engine, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return validator.RegisterPhoneRule(engine)
}

// respondError maps service errors onto HTTP responses
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var notFound *models.NotFoundError
	var stale *models.StaleTransitionError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "not_found",
			"resource": notFound.Resource,
			"message":  notFound.Error(),
		})
	case errors.Is(err, models.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "slot_unavailable",
			"message": err.Error(),
		})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{
			"error":          "stale_transition",
			"current_status": stale.Current,
			"message":        stale.Error(),
		})
	case errors.Is(err, models.ErrCustomerRequired), errors.Is(err, models.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_credentials",
			"message": err.Error(),
		})
	default:
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}
}

func validationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_error",
		"message": err.Error(),
	})
}

// uuidParam parses a path parameter, writing a 400 when it is malformed
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "invalid " + name,
		})
		return uuid.Nil, false
	}
	return id, true
}

package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/slotbook/booking-engine/internal/utils"
)

// AuditRecorder records booking audit entries. Recording is best-effort.
type AuditRecorder interface {
	Record(ctx context.Context, audit *models.BookingAudit)
}

// AuditStore persists audit entries
type AuditStore interface {
	Log(ctx context.Context, audit *models.BookingAudit) error
}

// AuditService writes the booking audit trail
type AuditService struct {
	store   AuditStore
	logger  *logrus.Logger
	enabled bool
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore, logger *logrus.Logger, enabled bool) *AuditService {
	return &AuditService{
		store:   store,
		logger:  logger,
		enabled: enabled,
	}
}

// Record stores an entry, attaching parsed device info when a user agent is present.
// A failed write is logged and swallowed.
func (s *AuditService) Record(ctx context.Context, audit *models.BookingAudit) {
	if !s.enabled || audit == nil {
		return
	}

	if audit.UserAgent != nil {
		audit.SetDetail("device_info", utils.ParseUserAgent(*audit.UserAgent))
	}

	if err := s.store.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":     audit.Action,
			"booking_id": audit.BookingID,
		}).Error("Failed to record booking audit")
	}
}

// NopAuditRecorder discards entries
type NopAuditRecorder struct{}

// Record implements AuditRecorder
func (NopAuditRecorder) Record(context.Context, *models.BookingAudit) {}

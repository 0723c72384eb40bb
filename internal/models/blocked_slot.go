package models

import (
	"time"

	"github.com/google/uuid"
)

// BlockedSlot is a tenant-declared unavailable interval [StartTime, EndTime)
type BlockedSlot struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	Reason    *string   `json:"reason,omitempty" db:"reason"`
	CreatedBy uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateBlockedSlotRequest is the body for declaring a blocked interval
type CreateBlockedSlotRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	Reason    *string   `json:"reason,omitempty" binding:"omitempty,max=500"`
}

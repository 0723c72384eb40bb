package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionType is a bookable service offered by a tenant
type SessionType struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	TenantID        uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Name            string          `json:"name" db:"name"`
	Description     *string         `json:"description,omitempty" db:"description"`
	DurationMinutes int             `json:"duration_minutes" db:"duration_minutes"`
	Price           decimal.Decimal `json:"price" db:"price"`
	Currency        string          `json:"currency" db:"currency"`
	Capacity        int             `json:"capacity" db:"capacity"`
	MeetingLink     *string         `json:"meeting_link,omitempty" db:"meeting_link"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// Duration returns the session length
func (s *SessionType) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// IsFree reports whether the session costs nothing
func (s *SessionType) IsFree() bool {
	return s.Price.IsZero()
}

// Tenant is the business account that owns session types and bookings
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

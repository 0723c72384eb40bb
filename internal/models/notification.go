package models

import (
	"time"

	"github.com/google/uuid"
)

// RoutingKeyBookingConfirmed is the topic used for confirmation messages
const RoutingKeyBookingConfirmed = "booking.confirmed"

// BookingConfirmedMessage is published once a booking reaches CONFIRMED
type BookingConfirmedMessage struct {
	BookingID          uuid.UUID `json:"booking_id"`
	ConfirmationNumber string    `json:"confirmation_number"`
	TenantID           uuid.UUID `json:"tenant_id"`
	TenantName         string    `json:"tenant_name"`
	TenantEmail        string    `json:"tenant_email"`
	CustomerName       string    `json:"customer_name"`
	CustomerEmail      string    `json:"customer_email"`
	SessionName        string    `json:"session_name"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Timezone           string    `json:"timezone"`
	MeetingLink        string    `json:"meeting_link,omitempty"`
	Participants       int       `json:"participants"`
}

// NewBookingConfirmedMessage flattens booking details into a message
func NewBookingConfirmedMessage(d *BookingDetails) *BookingConfirmedMessage {
	msg := &BookingConfirmedMessage{
		BookingID:          d.Booking.ID,
		ConfirmationNumber: d.Booking.ConfirmationNumber(),
		TenantID:           d.Booking.TenantID,
		TenantName:         d.TenantName,
		TenantEmail:        d.TenantEmail,
		CustomerName:       d.Customer.FullName(),
		CustomerEmail:      d.Customer.Email,
		SessionName:        d.SessionType.Name,
		StartTime:          d.Booking.StartTime,
		EndTime:            d.Booking.EndTime,
		Timezone:           d.Customer.Timezone,
		Participants:       d.Booking.Participants,
	}
	if d.Booking.CustomerTimezone != nil && *d.Booking.CustomerTimezone != "" {
		msg.Timezone = *d.Booking.CustomerTimezone
	}
	if d.SessionType.MeetingLink != nil {
		msg.MeetingLink = *d.SessionType.MeetingLink
	}
	return msg
}

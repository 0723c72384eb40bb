package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
)

// unfold joins iCalendar continuation lines
func unfold(s string) string {
	return strings.ReplaceAll(s, "\r\n ", "")
}

func TestCalendarService_Invite(t *testing.T) {
	svc := NewCalendarService("-//slotbook//test//EN")
	svc.now = func() time.Time { return mustTime("2030-01-01T08:00:00Z") }

	bookingID := uuid.MustParse("7d3c1f0e-3b7a-4d8e-9c55-0a6b1f2e3d4c")
	start := mustTime("2030-01-07T10:00:00Z")
	msg := &models.BookingConfirmedMessage{
		BookingID:          bookingID,
		ConfirmationNumber: "BK-7D3C1F0E",
		TenantName:         "Calm Studio",
		TenantEmail:        "hello@calm.example",
		CustomerName:       "Ann Lee",
		CustomerEmail:      "ann@example.com",
		SessionName:        "Consultation",
		StartTime:          start,
		EndTime:            start.Add(time.Hour),
		MeetingLink:        "https://meet.example/abc",
		Participants:       2,
	}

	ics := unfold(svc.Invite(msg))

	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "METHOD:REQUEST")
	assert.Contains(t, ics, "PRODID:-//slotbook//test//EN")
	assert.Contains(t, ics, "UID:7d3c1f0e-3b7a-4d8e-9c55-0a6b1f2e3d4c@slotbook")
	assert.Contains(t, ics, "DTSTART:20300107T100000Z")
	assert.Contains(t, ics, "DTEND:20300107T110000Z")
	assert.Contains(t, ics, "SUMMARY:Consultation with Calm Studio")
	assert.Contains(t, ics, "STATUS:CONFIRMED")
	assert.Contains(t, ics, "LOCATION:https://meet.example/abc")
	assert.Contains(t, ics, "hello@calm.example")
	assert.Contains(t, ics, "ann@example.com")
	assert.Contains(t, ics, "BK-7D3C1F0E")
	assert.Contains(t, ics, "END:VEVENT")
}

func TestCalendarService_InviteWithoutMeetingLink(t *testing.T) {
	svc := NewCalendarService("-//slotbook//test//EN")
	start := mustTime("2030-01-07T10:00:00Z")

	ics := unfold(svc.Invite(&models.BookingConfirmedMessage{
		BookingID:     uuid.New(),
		CustomerEmail: "ann@example.com",
		SessionName:   "Consultation",
		StartTime:     start,
		EndTime:       start.Add(30 * time.Minute),
	}))

	assert.NotContains(t, ics, "LOCATION:")
	assert.NotContains(t, ics, "ORGANIZER")
	assert.Contains(t, ics, "ATTENDEE")
}

package services

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/slotbook/booking-engine/internal/models"
)

// CalendarService renders confirmed bookings as iCalendar invites
type CalendarService struct {
	productID string
	now       func() time.Time
}

// NewCalendarService creates a calendar service with the PRODID to stamp on invites
func NewCalendarService(productID string) *CalendarService {
	return &CalendarService{productID: productID, now: time.Now}
}

// Invite builds a METHOD:REQUEST calendar with one confirmed event.
// Organizer is the tenant, attendee is the customer.
func (s *CalendarService) Invite(msg *models.BookingConfirmedMessage) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId(s.productID)

	event := cal.AddEvent(fmt.Sprintf("%s@slotbook", msg.BookingID))
	now := s.now().UTC()
	event.SetCreatedTime(now)
	event.SetDtStampTime(now)
	event.SetStartAt(msg.StartTime.UTC())
	event.SetEndAt(msg.EndTime.UTC())
	event.SetSummary(fmt.Sprintf("%s with %s", msg.SessionName, msg.TenantName))
	event.SetDescription(inviteDescription(msg))
	event.SetStatus(ics.ObjectStatusConfirmed)

	if msg.MeetingLink != "" {
		event.SetLocation(msg.MeetingLink)
		event.SetURL(msg.MeetingLink)
	}
	if msg.TenantEmail != "" {
		event.SetOrganizer(msg.TenantEmail, ics.WithCN(msg.TenantName))
	}
	event.AddAttendee(msg.CustomerEmail,
		ics.WithCN(msg.CustomerName),
		ics.CalendarUserTypeIndividual,
		ics.ParticipationStatusNeedsAction,
		ics.ParticipationRoleReqParticipant,
		ics.WithRSVP(true),
	)

	return cal.Serialize()
}

func inviteDescription(msg *models.BookingConfirmedMessage) string {
	desc := fmt.Sprintf("Confirmation number: %s\nParticipants: %d", msg.ConfirmationNumber, msg.Participants)
	if msg.MeetingLink != "" {
		desc += "\nJoin: " + msg.MeetingLink
	}
	return desc
}

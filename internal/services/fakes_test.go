package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/slotbook/booking-engine/internal/database"
	"github.com/slotbook/booking-engine/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// ============================================================================
// IN-MEMORY STORE
// ============================================================================

// memoryStore backs bookings, payments, blocked slots, session types and
// customers. Guarded updates take the mutex so they behave like the SQL CAS.
type memoryStore struct {
	mu           sync.Mutex
	tenant       models.Tenant
	bookings     map[uuid.UUID]*models.Booking
	payments     map[uuid.UUID]*models.Payment // by booking id
	blocked      []models.BlockedSlot
	sessionTypes map[uuid.UUID]*models.SessionType
	customers    map[uuid.UUID]*models.Customer
}

func newMemoryStore(tenantID uuid.UUID) *memoryStore {
	return &memoryStore{
		tenant:       models.Tenant{ID: tenantID, Name: "Calm Studio", Email: "hello@calm.example", Timezone: "UTC"},
		bookings:     map[uuid.UUID]*models.Booking{},
		payments:     map[uuid.UUID]*models.Payment{},
		sessionTypes: map[uuid.UUID]*models.SessionType{},
		customers:    map[uuid.UUID]*models.Customer{},
	}
}

func (m *memoryStore) addSessionType(price string, minutes int) *models.SessionType {
	st := &models.SessionType{
		ID:              uuid.New(),
		TenantID:        m.tenant.ID,
		Name:            "Consultation",
		DurationMinutes: minutes,
		Price:           decimal.RequireFromString(price),
		Currency:        "usd",
		Capacity:        1,
		IsActive:        true,
	}
	m.sessionTypes[st.ID] = st
	return st
}

func (m *memoryStore) addBlocked(start, end time.Time) {
	m.blocked = append(m.blocked, models.BlockedSlot{ID: uuid.New(), TenantID: m.tenant.ID, StartTime: start, EndTime: end})
}

// addPending seeds a PENDING_PAYMENT booking with its pending payment
func (m *memoryStore) addPending(business, fee string) (*models.Booking, *models.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	customer := &models.Customer{ID: uuid.New(), Email: "ann@example.com", Timezone: "UTC"}
	m.customers[customer.ID] = customer
	start := mustTime("2030-01-07T10:00:00Z")
	b := &models.Booking{
		ID:            uuid.New(),
		TenantID:      m.tenant.ID,
		CustomerID:    customer.ID,
		SessionTypeID: uuid.New(),
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        models.BookingStatusPendingPayment,
		Participants:  1,
	}
	bAmt, fAmt := decimal.RequireFromString(business), decimal.RequireFromString(fee)
	p := &models.Payment{
		ID:                uuid.New(),
		TenantID:          b.TenantID,
		BookingID:         b.ID,
		CustomerID:        customer.ID,
		Amount:            bAmt.Add(fAmt),
		PlatformFee:       fAmt,
		BusinessAmount:    bAmt,
		Currency:          "USD",
		Status:            models.PaymentStatusPending,
		CheckoutSessionID: "chrg_" + b.ID.String()[:8],
	}
	m.bookings[b.ID] = b
	m.payments[b.ID] = p
	return b, p
}

func (m *memoryStore) booking(id uuid.UUID) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bookings[id]
}

func (m *memoryStore) payment(bookingID uuid.UUID) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.payments[bookingID]
}

func (m *memoryStore) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// SessionTypeLookup

func (m *memoryStore) GetForTenant(_ context.Context, tenantID, id uuid.UUID) (*models.SessionType, error) {
	st, ok := m.sessionTypes[id]
	if !ok || st.TenantID != tenantID {
		return nil, nil
	}
	return st, nil
}

// customerView exposes the store as a CustomerDirectory
type customerView struct{ m *memoryStore }

func (v customerView) FindOrCreateByEmail(_ context.Context, email string, firstName, lastName, phone *string) (*models.Customer, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	for _, c := range v.m.customers {
		if c.Email == email {
			return c, nil
		}
	}
	c := &models.Customer{ID: uuid.New(), Email: email, FirstName: firstName, LastName: lastName, Phone: phone, Timezone: "UTC"}
	v.m.customers[c.ID] = c
	return c, nil
}

func (v customerView) GetByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	return v.m.customers[id], nil
}

// BlockedIntervalLookup

func (m *memoryStore) ListConflicting(_ context.Context, _ uuid.UUID, start, end time.Time) ([]models.BlockedSlot, error) {
	// Returns every tenant's slots; the checker must filter
	return m.blocked, nil
}

// BookingStore

func (m *memoryStore) GetDetails(_ context.Context, id uuid.UUID) (*models.BookingDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	d := &models.BookingDetails{Booking: *b, TenantName: m.tenant.Name, TenantEmail: m.tenant.Email}
	if c := m.customers[b.CustomerID]; c != nil {
		d.Customer = *c
	}
	if st := m.sessionTypes[b.SessionTypeID]; st != nil {
		d.SessionType = *st
	}
	return d, nil
}

func (m *memoryStore) countOverlapping(tenantID uuid.UUID, start, end time.Time) int {
	n := 0
	for _, b := range m.bookings {
		if b.TenantID == tenantID && b.Status.OccupiesSlot() && Overlaps(start, end, b.StartTime, b.EndTime) {
			n++
		}
	}
	return n
}

func (m *memoryStore) CountOverlapping(_ context.Context, tenantID uuid.UUID, start, end time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countOverlapping(tenantID, start, end), nil
}

func (m *memoryStore) CreateBooking(_ context.Context, b *models.Booking, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countOverlapping(b.TenantID, b.StartTime, b.EndTime) > 0 {
		return models.ErrSlotUnavailable
	}
	stored := *b
	m.bookings[b.ID] = &stored
	if p != nil {
		sp := *p
		m.payments[b.ID] = &sp
	}
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.TenantID != tenantID {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memoryStore) ListUpcoming(ctx context.Context, tenantID uuid.UUID, from time.Time, limit int) ([]*models.BookingDetails, error) {
	m.mu.Lock()
	var ids []uuid.UUID
	for id, b := range m.bookings {
		if b.TenantID == tenantID && !b.StartTime.Before(from) {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	var out []*models.BookingDetails
	for _, id := range ids {
		d, _ := m.GetDetails(ctx, id)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Booking.StartTime.Before(out[j].Booking.StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) ApplyGatewayTransition(_ context.Context, t database.GatewayTransition) (bool, models.BookingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[t.BookingID]
	if !ok {
		return false, "", errors.New("booking missing")
	}
	if b.Status != models.BookingStatusPendingPayment {
		return false, b.Status, nil
	}
	p, ok := m.payments[t.BookingID]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, "", errors.New("no pending payment")
	}

	b.Status = t.To
	if t.CancellationReason != nil {
		b.CancellationReason = t.CancellationReason
		b.CancelledBy = t.CancelledBy
	}
	p.Status = t.Payment.Status
	p.GatewayChargeID = t.Payment.GatewayChargeID
	p.PaymentMethod = t.Payment.PaymentMethod
	p.FailureReason = t.Payment.FailureReason
	p.PlatformFee = t.Payment.PlatformFee
	p.BusinessAmount = t.Payment.BusinessAmount
	p.Amount = t.Payment.Amount()
	return true, t.To, nil
}

func (m *memoryStore) CancelBooking(_ context.Context, tenantID, id uuid.UUID, reason, cancelledBy string) (bool, models.BookingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.TenantID != tenantID {
		return false, "", models.NewNotFound("booking", id)
	}
	if !b.Status.OccupiesSlot() {
		return false, b.Status, nil
	}
	b.Status = models.BookingStatusCancelled
	b.CancellationReason = &reason
	b.CancelledBy = &cancelledBy
	if p, ok := m.payments[id]; ok && p.Status == models.PaymentStatusPending {
		p.Status = models.PaymentStatusCancelled
	}
	return true, b.Status, nil
}

// PaymentLookup

func (m *memoryStore) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[bookingID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryStore) GetByCheckoutSessionID(_ context.Context, sessionID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.CheckoutSessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

// ============================================================================
// COLLABORATOR FAKES
// ============================================================================

type fakeDispatcher struct {
	mu       sync.Mutex
	messages []*models.BookingDetails
	err      error
}

func (d *fakeDispatcher) NotifyConfirmed(_ context.Context, details *models.BookingDetails) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.messages = append(d.messages, details)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []*models.CheckoutRequest
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req *models.CheckoutRequest) (*models.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &models.CheckoutSession{ID: "chrg_test_" + req.BookingID.String()[:8], RedirectURL: "https://pay.example/authorize"}, nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.BookingAudit
}

func (a *recordingAudit) Record(_ context.Context, audit *models.BookingAudit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, audit)
}

func (a *recordingAudit) actions() []models.BookingAuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.BookingAuditAction, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type memoryDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryDedup() *memoryDedup {
	return &memoryDedup{seen: map[string]bool{}}
}

func (d *memoryDedup) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[key], nil
}

func (d *memoryDedup) Remember(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[key] = true
	return nil
}

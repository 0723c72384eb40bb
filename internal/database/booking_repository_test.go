package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func pendingBooking() (*models.Booking, *models.Payment) {
	start := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)
	b := &models.Booking{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		CustomerID:    uuid.New(),
		SessionTypeID: uuid.New(),
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        models.BookingStatusPendingPayment,
		Participants:  1,
	}
	p := &models.Payment{
		ID:                uuid.New(),
		TenantID:          b.TenantID,
		BookingID:         b.ID,
		CustomerID:        b.CustomerID,
		Amount:            decimal.RequireFromString("52.50"),
		PlatformFee:       decimal.RequireFromString("2.50"),
		BusinessAmount:    decimal.RequireFromString("50.00"),
		Currency:          "USD",
		Status:            models.PaymentStatusPending,
		CheckoutSessionID: "chrg_test_1",
	}
	return b, p
}

func TestBookingRepository_CreateBooking(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	booking, payment := pendingBooking()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(booking.TenantID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM blocked_slots`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO payments`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateBooking(context.Background(), booking, payment))
	assert.False(t, booking.CreatedAt.IsZero())
	assert.Equal(t, booking.CreatedAt, payment.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_CreateBookingFreeSkipsPayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	booking, _ := pendingBooking()
	booking.Status = models.BookingStatusConfirmed

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM blocked_slots`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateBooking(context.Background(), booking, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_CreateBookingSlotTaken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)
	booking, payment := pendingBooking()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM blocked_slots`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateBooking(context.Background(), booking, payment)
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ApplyGatewayTransition(t *testing.T) {
	booking, _ := pendingBooking()
	chargeID := "chrg_test_1"
	transition := GatewayTransition{
		BookingID: booking.ID,
		To:        models.BookingStatusConfirmed,
		Payment: models.PaymentOutcome{
			Status:          models.PaymentStatusCompleted,
			GatewayChargeID: &chargeID,
			PlatformFee:     decimal.RequireFromString("2.50"),
			BusinessAmount:  decimal.RequireFromString("50.00"),
		},
	}

	t.Run("Applied", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(booking.ID.String(), "CONFIRMED", nil, nil, nil, "PENDING_PAYMENT").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(booking.ID.String(), "COMPLETED", chargeID, nil, nil, "2.5", "50", "52.5", "PENDING").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		applied, current, err := repo.ApplyGatewayTransition(context.Background(), transition)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, models.BookingStatusConfirmed, current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status FROM bookings`).
			WithArgs(booking.ID.String()).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
		mock.ExpectCommit()

		applied, current, err := repo.ApplyGatewayTransition(context.Background(), transition)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, models.BookingStatusCancelled, current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing pending payment rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payments`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		applied, _, err := repo.ApplyGatewayTransition(context.Background(), transition)
		assert.Error(t, err)
		assert.False(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_CancelBooking(t *testing.T) {
	booking, _ := pendingBooking()

	t.Run("Applied", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE payments SET status`).
			WithArgs(booking.ID.String(), "CANCELLED", "PENDING").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		applied, current, err := repo.CancelBooking(context.Background(), booking.TenantID, booking.ID, "Client asked", "owner")
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, models.BookingStatusCancelled, current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already terminal", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PAYMENT_FAILED"))
		mock.ExpectCommit()

		applied, current, err := repo.CancelBooking(context.Background(), booking.TenantID, booking.ID, "Client asked", "owner")
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, models.BookingStatusPaymentFailed, current)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status FROM bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		_, _, err := repo.CancelBooking(context.Background(), booking.TenantID, booking.ID, "Client asked", "owner")
		assert.True(t, models.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_GetByIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(`FROM bookings b WHERE b.id = \$1 AND b.tenant_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	booking, err := repo.GetByID(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, booking)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_CountOverlappingError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings`).WillReturnError(errors.New("connection reset"))

	_, err := repo.CountOverlapping(context.Background(), uuid.New(), time.Now(), time.Now().Add(time.Hour))
	assert.ErrorContains(t, err, "connection reset")
}

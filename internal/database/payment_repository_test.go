package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/slotbook/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentRowColumns = []string{
	"id", "tenant_id", "booking_id", "customer_id", "amount", "platform_fee", "business_amount",
	"currency", "status", "checkout_session_id", "gateway_charge_id", "payment_method",
	"failure_reason", "metadata", "created_at", "updated_at",
}

func TestPaymentRepository_GetByCheckoutSessionID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	bookingID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`FROM payments WHERE checkout_session_id = \$1`).
		WithArgs("chrg_test_1").
		WillReturnRows(sqlmock.NewRows(paymentRowColumns).AddRow(
			uuid.New().String(), uuid.New().String(), bookingID.String(), uuid.New().String(),
			"52.50", "2.50", "50.00", "USD", "PENDING", "chrg_test_1", nil, nil,
			nil, []byte(`{"booking_id":"`+bookingID.String()+`"}`), now, now,
		))

	payment, err := repo.GetByCheckoutSessionID(context.Background(), "chrg_test_1")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, bookingID, payment.BookingID)
	assert.Equal(t, "52.50", payment.Amount.StringFixed(2))
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, bookingID.String(), payment.Metadata["booking_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByBookingIDMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`FROM payments WHERE booking_id = \$1`).
		WillReturnRows(sqlmock.NewRows(paymentRowColumns))

	payment, err := repo.GetByBookingID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, payment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_ListStalePending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	cutoff := time.Date(2030, 1, 7, 11, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE status = \$1 AND created_at < \$2`).
		WithArgs("PENDING", cutoff, int64(50)).
		WillReturnRows(sqlmock.NewRows(paymentRowColumns))

	payments, err := repo.ListStalePending(context.Background(), cutoff, 50)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

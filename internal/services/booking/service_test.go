package booking_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/internal/services/booking"
	"github.com/kevin07696/booking-payment-service/internal/testutil/memstore"
	"github.com/kevin07696/booking-payment-service/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bookingID = "6f1c2a0e-5d1b-4a57-9f3e-0c2b7d8e9a10"

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, status domain.BookingStatus, expiresAt time.Time) (*booking.Service, *memstore.Store, *memstore.Publisher) {
	t.Helper()
	store := memstore.New()
	store.PutBooking(&domain.Booking{
		ID:               bookingID,
		UserID:           "user-1",
		Status:           status,
		Amount:           10000,
		Currency:         domain.CurrencyTRY,
		PreTransactionID: "pre-1",
		PreTransaction:   &domain.PreTransaction{ID: "pre-1", ExpiresAt: expiresAt},
	})
	events := &memstore.Publisher{}
	svc := booking.NewService(store, events, func() time.Time { return testNow }, security.NewZapLogger(zap.NewNop()))
	return svc, store, events
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.BookingStatus
		want     bool
	}{
		{domain.BookingAwaitingPayment, domain.BookingPaymentInProgress, true},
		{domain.BookingAwaitingPayment, domain.BookingExpired, true},
		{domain.BookingAwaitingPayment, domain.BookingCancelled, true},
		{domain.BookingPaymentInProgress, domain.BookingConfirmed, true},
		{domain.BookingPaymentInProgress, domain.BookingFailed, true},
		{domain.BookingConfirmed, domain.BookingRefundPending, true},
		{domain.BookingRefundPending, domain.BookingRefunded, true},
		{domain.BookingRefundPending, domain.BookingConfirmed, true},
		{domain.BookingAwaitingPayment, domain.BookingConfirmed, false},
		{domain.BookingConfirmed, domain.BookingPaymentInProgress, false},
		{domain.BookingExpired, domain.BookingPaymentInProgress, false},
		{domain.BookingFailed, domain.BookingPaymentInProgress, false},
		{domain.BookingRefunded, domain.BookingRefundPending, false},
		{domain.BookingConfirmed, domain.BookingRefunded, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, booking.CanTransition(tt.from, tt.to))
		})
	}

	for _, terminal := range []domain.BookingStatus{domain.BookingFailed, domain.BookingExpired, domain.BookingCancelled, domain.BookingRefunded} {
		assert.True(t, terminal.IsTerminal())
		for _, to := range []domain.BookingStatus{domain.BookingAwaitingPayment, domain.BookingPaymentInProgress, domain.BookingConfirmed, domain.BookingRefundPending} {
			assert.False(t, booking.CanTransition(terminal, to), "%s must be terminal", terminal)
		}
	}
}

func TestConflictError(t *testing.T) {
	tests := []struct {
		status domain.BookingStatus
		code   domain.ErrorCode
		http   int
	}{
		{domain.BookingExpired, domain.ErrorCodeBookingExpired, 400},
		{domain.BookingPaymentInProgress, domain.ErrorCodePaymentInProgress, 409},
		{domain.BookingConfirmed, domain.ErrorCodeBookingAlreadyConfirmed, 409},
		{domain.BookingRefunded, domain.ErrorCodeBookingAlreadyRefunded, 409},
		{domain.BookingFailed, domain.ErrorCodeBookingInvalidState, 409},
		{domain.BookingRefundPending, domain.ErrorCodeBookingInvalidState, 409},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			err := booking.ConflictError(tt.status)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.http, err.HTTPStatus())
			assert.Equal(t, string(tt.status), err.Details["current_state"])
			assert.True(t, domain.IsStateConflict(err))
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	svc, _, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))

	_, err := svc.Load(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingNotFound))
	assert.Equal(t, 404, domain.HTTPStatus(err))
}

func TestLoad_ExpiresLapsedHold(t *testing.T) {
	svc, store, events := setup(t, domain.BookingAwaitingPayment, testNow.Add(-time.Minute))

	b, err := svc.Load(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingExpired, b.Status)
	assert.Equal(t, domain.BookingExpired, store.Booking(bookingID).Status)
	assert.Equal(t, []ports.PaymentEventType{ports.EventBookingExpired}, events.Types())

	// a second read finds it already expired and publishes nothing new
	b, err = svc.Load(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingExpired, b.Status)
	assert.Len(t, events.Events(), 1)
}

func TestLoad_LeavesLiveAndNonAwaitingBookings(t *testing.T) {
	svc, store, events := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Minute))
	b, err := svc.Load(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingAwaitingPayment, b.Status)

	// an expired hold does not touch a booking that already moved on
	store.PutBooking(&domain.Booking{
		ID:             bookingID,
		Status:         domain.BookingConfirmed,
		PreTransaction: &domain.PreTransaction{ExpiresAt: testNow.Add(-time.Hour)},
	})
	b, err = svc.Load(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Empty(t, events.Events())
}

func TestReserve(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))

	b, err := svc.Reserve(context.Background(), booking.ReserveRequest{
		BookingID:          bookingID,
		OrderID:            "GRN_1_A00001",
		DiscountID:         "d-1",
		DiscountUserScoped: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaymentInProgress, b.Status)
	assert.Equal(t, "GRN_1_A00001", b.OrderID)

	stored := store.Booking(bookingID)
	assert.Equal(t, domain.BookingPaymentInProgress, stored.Status)
	assert.Equal(t, "d-1", stored.DiscountID)
	assert.True(t, stored.DiscountUserScoped)

	_, err = svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: "GRN_2_B00002"})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodePaymentInProgress))
	assert.Equal(t, "GRN_1_A00001", store.Booking(bookingID).OrderID)
}

func TestReserve_ConflictsNameCurrentState(t *testing.T) {
	tests := []struct {
		status domain.BookingStatus
		code   domain.ErrorCode
	}{
		{domain.BookingConfirmed, domain.ErrorCodeBookingAlreadyConfirmed},
		{domain.BookingExpired, domain.ErrorCodeBookingExpired},
		{domain.BookingRefunded, domain.ErrorCodeBookingAlreadyRefunded},
		{domain.BookingFailed, domain.ErrorCodeBookingInvalidState},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc, _, _ := setup(t, tt.status, testNow.Add(time.Hour))
			_, err := svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: "GRN_1_A00001"})
			assert.True(t, domain.IsDomainError(err, tt.code))
		})
	}
}

func TestReserve_ExpiredHoldReportedAsExpired(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(-time.Second))
	_, err := svc.Load(context.Background(), bookingID)
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: "GRN_1_A00001"})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingExpired))
	assert.Empty(t, store.Booking(bookingID).OrderID)
}

func TestReserve_ConcurrentCallersExactlyOneWins(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			orderID := fmt.Sprintf("GRN_%d_A%05d", i, i)
			_, err := svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: orderID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, orderID)
			case domain.IsDomainError(err, domain.ErrorCodePaymentInProgress):
				conflicts++
			default:
				other = append(other, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, winners, 1)
	assert.Equal(t, callers-1, conflicts)

	stored := store.Booking(bookingID)
	assert.Equal(t, domain.BookingPaymentInProgress, stored.Status)
	assert.Equal(t, winners[0], stored.OrderID)
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name     string
		approved bool
		want     domain.BookingStatus
	}{
		{name: "approved", approved: true, want: domain.BookingConfirmed},
		{name: "declined", approved: false, want: domain.BookingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))
			_, err := svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: "GRN_1_A00001"})
			require.NoError(t, err)

			b, changed, err := svc.Settle(context.Background(), nil, "GRN_1_A00001", tt.approved)
			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, tt.want, b.Status)
			assert.Equal(t, tt.want, store.Booking(bookingID).Status)

			// replay
			b, changed, err = svc.Settle(context.Background(), nil, "GRN_1_A00001", tt.approved)
			require.NoError(t, err)
			assert.False(t, changed)
			assert.Equal(t, tt.want, b.Status)
		})
	}
}

func TestSettle_MarksGatewaySuccess(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))
	_, err := svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: "GRN_1_A00001"})
	require.NoError(t, err)

	_, _, err = svc.Settle(context.Background(), nil, "GRN_1_A00001", true)
	require.NoError(t, err)
	assert.True(t, store.Booking(bookingID).PreTransaction.LastGatewaySuccess)
}

func TestSettle_UnknownOrder(t *testing.T) {
	svc, _, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))

	b, changed, err := svc.Settle(context.Background(), nil, "GRN_404_Z00000", true)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.False(t, changed)
}

func TestRefundTransitions(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingConfirmed, testNow.Add(-time.Hour))
	ctx := context.Background()

	b, err := svc.BeginRefund(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingRefundPending, b.Status)

	_, err = svc.BeginRefund(ctx, bookingID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingInvalidState))

	require.Error(t, svc.CompleteRefund(ctx, nil, b, domain.BookingFailed))

	require.NoError(t, svc.CompleteRefund(ctx, nil, b, domain.BookingRefunded))
	assert.Equal(t, domain.BookingRefunded, store.Booking(bookingID).Status)

	_, err = svc.BeginRefund(ctx, bookingID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingAlreadyRefunded))
}

func TestRefundTransitions_DeclinedRevertsToConfirmed(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingConfirmed, testNow.Add(time.Hour))
	ctx := context.Background()

	b, err := svc.BeginRefund(ctx, bookingID)
	require.NoError(t, err)
	require.NoError(t, svc.CompleteRefund(ctx, nil, b, domain.BookingConfirmed))
	assert.Equal(t, domain.BookingConfirmed, store.Booking(bookingID).Status)
}

func TestBeginRefund_RequiresConfirmed(t *testing.T) {
	svc, _, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))
	_, err := svc.BeginRefund(context.Background(), bookingID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingInvalidState))
}

func TestCancel(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))

	b, err := svc.Cancel(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.BookingCancelled, store.Booking(bookingID).Status)

	_, err = svc.Cancel(context.Background(), bookingID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingInvalidState))
}

func TestCancel_ExpiredBooking(t *testing.T) {
	svc, store, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(-time.Hour))

	_, err := svc.Cancel(context.Background(), bookingID)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingExpired))
	assert.Equal(t, domain.BookingExpired, store.Booking(bookingID).Status)
}

func TestNotify_PublishFailureIsSwallowed(t *testing.T) {
	svc, _, events := setup(t, domain.BookingAwaitingPayment, testNow.Add(-time.Hour))
	events.Err = fmt.Errorf("broker down")

	b, err := svc.Load(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingExpired, b.Status)
}

func TestFindByOrderID(t *testing.T) {
	svc, _, _ := setup(t, domain.BookingAwaitingPayment, testNow.Add(time.Hour))
	_, err := svc.Reserve(context.Background(), booking.ReserveRequest{BookingID: bookingID, OrderID: "GRN_1_A00001"})
	require.NoError(t, err)

	b, err := svc.FindByOrderID(context.Background(), "GRN_1_A00001")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, bookingID, b.ID)

	b, err = svc.FindByOrderID(context.Background(), "GRN_9_Z99999")
	require.NoError(t, err)
	assert.Nil(t, b)
}

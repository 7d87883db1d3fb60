package payment_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/services/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var orderIDPattern = regexp.MustCompile(`^GRN_\d+_[A-Z]\d{5}$`)

func TestInitiatePayment(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.gateway.On("BuildRedirect", mock.Anything, testNow).
		Return(map[string]string{"secure3dhash": "ABC"}, nil).Once()

	res, err := h.svc.InitiatePayment(context.Background(), payment.InitiateRequest{
		Amount:        10000,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		Card:          testCard(),
	})
	require.NoError(t, err)

	assert.Regexp(t, orderIDPattern, res.OrderID)
	assert.Equal(t, testRedirectURL, res.RedirectURL)
	assert.Equal(t, "ABC", res.FormData["secure3dhash"])

	req := h.gateway.Calls[0].Arguments.Get(0).(*domain.PaymentRequest)
	assert.Equal(t, res.OrderID, req.OrderID)
	assert.Equal(t, domain.KindSale, req.Kind)
	assert.Equal(t, domain.CurrencyTRY, req.Currency)

	// nothing is recorded before the callback
	assert.Empty(t, h.store.Entries())
}

func TestInitiatePayment_OrderIDsAreFresh(t *testing.T) {
	h := newHarness(t, payment.Config{OrderPrefix: "TRV"})
	h.gateway.On("BuildRedirect", mock.Anything, mock.Anything).Return(map[string]string{}, nil)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		res, err := h.svc.InitiatePayment(context.Background(), payment.InitiateRequest{
			Amount: 100, CustomerEmail: "a@example.com", CustomerIP: "10.0.0.1", Card: testCard(),
		})
		require.NoError(t, err)
		assert.Regexp(t, `^TRV_`, res.OrderID)
		seen[res.OrderID] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestInitiatePayment_RejectsRefunds(t *testing.T) {
	h := newHarness(t, payment.Config{})

	_, err := h.svc.InitiatePayment(context.Background(), payment.InitiateRequest{
		Amount: 100, Kind: domain.KindRefund, CustomerEmail: "a@example.com", CustomerIP: "10.0.0.1",
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	h.gateway.AssertNotCalled(t, "BuildRedirect", mock.Anything, mock.Anything)
}

func TestInitiatePayment_PassesValidationErrorsThrough(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.gateway.On("BuildRedirect", mock.Anything, mock.Anything).
		Return(nil, domain.NewValidationError("card.number", "card number failed checksum"))

	_, err := h.svc.InitiatePayment(context.Background(), payment.InitiateRequest{
		Amount: 100, CustomerEmail: "a@example.com", CustomerIP: "10.0.0.1", Card: testCard(),
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	assert.Equal(t, 400, domain.HTTPStatus(err))
}

func TestInitiateBookingPayment(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.putBooking(domain.BookingAwaitingPayment, testNow.Add(15*time.Minute))
	h.gateway.On("BuildRedirect", mock.Anything, mock.Anything).
		Return(map[string]string{"secure3dhash": "ABC"}, nil).Once()

	res, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
		BookingID:     testBookingID,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		Card:          testCard(),
	})
	require.NoError(t, err)

	assert.Equal(t, testBookingID, res.BookingID)
	assert.Equal(t, domain.BookingPaymentInProgress, res.Status)
	assert.Equal(t, domain.Amount(10000), res.Amount)
	assert.Equal(t, "ABC", res.FormData["secure3dhash"])

	stored := h.store.Booking(testBookingID)
	assert.Equal(t, domain.BookingPaymentInProgress, stored.Status)
	assert.Equal(t, res.OrderID, stored.OrderID)

	// a second attempt while the first is in flight
	_, err = h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
		BookingID: testBookingID, CustomerEmail: "ayse@example.com", CustomerIP: "192.168.1.10", Card: testCard(),
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodePaymentInProgress))
	assert.Equal(t, 409, domain.HTTPStatus(err))
}

func TestInitiateBookingPayment_MustChargeBookingAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   domain.Amount
		currency domain.Currency
		field    string
	}{
		{"underpayment", 1, "", "amount"},
		{"overpayment", 20000, domain.CurrencyTRY, "amount"},
		{"other currency", 10000, domain.CurrencyUSD, "currency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, payment.Config{})
			h.putBooking(domain.BookingAwaitingPayment, testNow.Add(time.Hour))

			_, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
				BookingID:     testBookingID,
				Amount:        tt.amount,
				Currency:      tt.currency,
				CustomerEmail: "ayse@example.com",
				CustomerIP:    "192.168.1.10",
				Card:          testCard(),
			})
			var derr *domain.DomainError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domain.ErrorCodeValidationFailed, derr.Code)
			assert.Equal(t, tt.field, derr.Details["field"])

			assert.Equal(t, domain.BookingAwaitingPayment, h.store.Booking(testBookingID).Status)
			h.gateway.AssertNotCalled(t, "BuildRedirect", mock.Anything, mock.Anything)
		})
	}

	t.Run("matching amount is accepted", func(t *testing.T) {
		h := newHarness(t, payment.Config{})
		h.putBooking(domain.BookingAwaitingPayment, testNow.Add(time.Hour))
		h.gateway.On("BuildRedirect", mock.MatchedBy(func(req *domain.PaymentRequest) bool {
			return req.Amount == 10000 && req.Currency == domain.CurrencyTRY
		}), mock.Anything).Return(map[string]string{}, nil).Once()

		res, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
			BookingID:     testBookingID,
			Amount:        10000,
			Currency:      domain.CurrencyTRY,
			CustomerEmail: "ayse@example.com",
			CustomerIP:    "192.168.1.10",
			Card:          testCard(),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.Amount(10000), res.Amount)
		h.gateway.AssertExpectations(t)
	})
}

func TestInitiateBookingPayment_ExpiredBooking(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.putBooking(domain.BookingAwaitingPayment, testNow.Add(-time.Minute))

	_, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
		BookingID: testBookingID, CustomerEmail: "ayse@example.com", CustomerIP: "192.168.1.10", Card: testCard(),
	})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingExpired))
	assert.Equal(t, 400, domain.HTTPStatus(err))

	assert.Equal(t, domain.BookingExpired, h.store.Booking(testBookingID).Status)
	h.gateway.AssertNotCalled(t, "BuildRedirect", mock.Anything, mock.Anything)
	h.gateway.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestInitiateBookingPayment_StateConflicts(t *testing.T) {
	tests := []struct {
		status domain.BookingStatus
		code   domain.ErrorCode
		http   int
	}{
		{domain.BookingConfirmed, domain.ErrorCodeBookingAlreadyConfirmed, 409},
		{domain.BookingRefunded, domain.ErrorCodeBookingAlreadyRefunded, 409},
		{domain.BookingExpired, domain.ErrorCodeBookingExpired, 400},
		{domain.BookingFailed, domain.ErrorCodeBookingInvalidState, 409},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := newHarness(t, payment.Config{})
			h.putBooking(tt.status, testNow.Add(time.Hour))

			_, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
				BookingID: testBookingID, CustomerEmail: "ayse@example.com", CustomerIP: "192.168.1.10", Card: testCard(),
			})
			assert.True(t, domain.IsDomainError(err, tt.code))
			assert.Equal(t, tt.http, domain.HTTPStatus(err))

			var derr *domain.DomainError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, string(tt.status), derr.Details["current_state"])
		})
	}
}

func TestInitiateBookingPayment_NotFound(t *testing.T) {
	h := newHarness(t, payment.Config{})

	_, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{BookingID: testBookingID})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeBookingNotFound))
	assert.Equal(t, 404, domain.HTTPStatus(err))
}

func TestInitiateBookingPayment_AppliesPromotion(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.putBooking(domain.BookingAwaitingPayment, testNow.Add(time.Hour))
	h.store.PutUserDiscount(domain.UserDiscount{
		Discount:  domain.Discount{ID: "d-user", Code: "WELCOME", Kind: domain.DiscountPercentage, Value: 10, Active: true},
		UserID:    "user-1",
		SingleUse: true,
	})
	h.gateway.On("BuildRedirect", mock.MatchedBy(func(req *domain.PaymentRequest) bool {
		return req.Amount == 9000
	}), mock.Anything).Return(map[string]string{}, nil).Once()

	res, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
		BookingID:     testBookingID,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		Card:          testCard(),
		PromotionCode: "welcome",
	})
	require.NoError(t, err)
	h.gateway.AssertExpectations(t)

	assert.Equal(t, domain.Amount(10000), res.OriginalAmount)
	assert.Equal(t, domain.Amount(9000), res.Amount)
	require.NotNil(t, res.Discount)
	assert.Equal(t, domain.Amount(1000), res.Discount.CalculatedAmount)

	stored := h.store.Booking(testBookingID)
	assert.Equal(t, "d-user", stored.DiscountID)
	assert.True(t, stored.DiscountUserScoped)
}

func TestInitiateBookingPayment_InvalidPromotion(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.putBooking(domain.BookingAwaitingPayment, testNow.Add(time.Hour))

	_, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
		BookingID:     testBookingID,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		Card:          testCard(),
		PromotionCode: "NOPE",
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	assert.Equal(t, domain.BookingAwaitingPayment, h.store.Booking(testBookingID).Status)
	h.gateway.AssertNotCalled(t, "BuildRedirect", mock.Anything, mock.Anything)
}

func TestInitiateBookingPayment_ConcurrentExactlyOneReserves(t *testing.T) {
	h := newHarness(t, payment.Config{})
	h.putBooking(domain.BookingAwaitingPayment, testNow.Add(time.Hour))
	h.gateway.On("BuildRedirect", mock.Anything, mock.Anything).Return(map[string]string{}, nil)

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.svc.InitiateBookingPayment(context.Background(), payment.BookingPaymentRequest{
				BookingID: testBookingID, CustomerEmail: "ayse@example.com", CustomerIP: "192.168.1.10", Card: testCard(),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if domain.IsDomainError(err, domain.ErrorCodePaymentInProgress) {
				conflicts++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
	assert.Equal(t, domain.BookingPaymentInProgress, h.store.Booking(testBookingID).Status)
}

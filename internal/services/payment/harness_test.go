package payment_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/adapters/exchangerate"
	"github.com/kevin07696/booking-payment-service/internal/adapters/garanti"
	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/kevin07696/booking-payment-service/internal/services/booking"
	"github.com/kevin07696/booking-payment-service/internal/services/discount"
	"github.com/kevin07696/booking-payment-service/internal/services/payment"
	"github.com/kevin07696/booking-payment-service/internal/testutil/memstore"
	"github.com/kevin07696/booking-payment-service/pkg/security"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testBookingID   = "6f1c2a0e-5d1b-4a57-9f3e-0c2b7d8e9a10"
	testStoreKey    = "12345678"
	testRedirectURL = "https://vpos.example.com/servlet/gt3dengine"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// mockGateway mocks the signing and sending sides; callbacks go through the real parser
type mockGateway struct {
	mock.Mock
	callbacks *garanti.CallbackParser
}

var _ ports.PaymentGateway = (*mockGateway)(nil)

func (m *mockGateway) BuildRedirect(req *domain.PaymentRequest, now time.Time) (map[string]string, error) {
	args := m.Called(req, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *mockGateway) RedirectURL() string { return testRedirectURL }

func (m *mockGateway) Process(ctx context.Context, req *domain.PaymentRequest) domain.Settlement {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Settlement)
}

func (m *mockGateway) ParseCallback(form url.Values) (*domain.GatewayCallback, error) {
	return m.callbacks.ParseCallback(form)
}

func (m *mockGateway) ClassifyReturnCode(code string) domain.Decline {
	return garanti.DeclineFor(garanti.LookupResponseCode(code))
}

type harness struct {
	svc     *payment.Service
	store   *memstore.Store
	events  *memstore.Publisher
	gateway *mockGateway
}

func newHarness(t *testing.T, cfg payment.Config) *harness {
	t.Helper()
	return newHarnessWithGateway(t, cfg, &mockGateway{callbacks: garanti.NewCallbackParser(testStoreKey, false)})
}

func newHarnessWithGateway(t *testing.T, cfg payment.Config, gw ports.PaymentGateway) *harness {
	t.Helper()
	store := memstore.New()
	events := &memstore.Publisher{}
	logger := security.NewZapLogger(zap.NewNop())
	clock := func() time.Time { return testNow }

	rates, err := exchangerate.NewFixedProvider("35.00")
	require.NoError(t, err)

	bookings := booking.NewService(store, events, clock, logger)
	promotions := discount.NewService(store, rates, clock, logger)
	svc := payment.NewService(store, store, bookings, promotions, gw, clock, cfg, logger)

	h := &harness{svc: svc, store: store, events: events}
	if m, ok := gw.(*mockGateway); ok {
		h.gateway = m
	}
	return h
}

func (h *harness) putBooking(status domain.BookingStatus, expiresAt time.Time) {
	h.store.PutBooking(&domain.Booking{
		ID:               testBookingID,
		UserID:           "user-1",
		Status:           status,
		Amount:           10000,
		Currency:         domain.CurrencyTRY,
		PreTransactionID: "pre-1",
		PreTransaction:   &domain.PreTransaction{ID: "pre-1", ExpiresAt: expiresAt},
		CreatedAt:        testNow.Add(-time.Hour),
	})
}

func testCard() *domain.Card {
	return &domain.Card{
		HolderName:  "Ayse Yilmaz",
		Number:      "4111111111111111",
		ExpireMonth: "12",
		ExpireYear:  "30",
		CVV:         "123",
	}
}

func approvedSettlement(orderID string) domain.Settlement {
	return domain.Approved(domain.SettlementDetails{
		OrderID:    orderID,
		ReturnCode: "00",
		AuthCode:   "304919",
		HostRefNum: "415312345678",
		Message:    "Approved",
	})
}

func declinedSettlement(orderID, code string) domain.Settlement {
	info := garanti.LookupResponseCode(code)
	return domain.Declined(domain.SettlementDetails{
		OrderID:    orderID,
		ReturnCode: code,
		Message:    info.Message,
	}, garanti.DeclineFor(info))
}

// callbackForm is an unsigned redirect-flow callback
func callbackForm(orderID, response, code string) url.Values {
	return url.Values{
		"oid":             {orderID},
		"response":        {response},
		"procreturncode":  {code},
		"authcode":        {"304919"},
		"mdstatus":        {"1"},
		"hostrefnum":      {"415312345678"},
		"txnamount":       {"10000"},
		"txncurrencycode": {"949"},
		"maskedpan":       {"411111******1111"},
	}
}

// signCallback adds hash, hashparams and hashparamsval over the given fields
func signCallback(t *testing.T, form url.Values, storeKey string) url.Values {
	t.Helper()
	params := []string{"oid", "authcode", "procreturncode", "response", "mdstatus"}
	values := make([]string, 0, len(params))
	joined := ""
	for _, p := range params {
		values = append(values, form.Get(p))
		joined += form.Get(p)
	}
	hash, err := garanti.CallbackHash(values, storeKey)
	require.NoError(t, err)

	signed := url.Values{}
	for k, v := range form {
		signed[k] = v
	}
	signed.Set("hashparams", "oid:authcode:procreturncode:response:mdstatus:")
	signed.Set("hashparamsval", joined)
	signed.Set("hash", hash)
	return signed
}

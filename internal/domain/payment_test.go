package domain

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCard() *Card {
	return &Card{
		HolderName:  "Ayse Yilmaz",
		Number:      "4111111111111111",
		ExpireMonth: "12",
		ExpireYear:  "30",
		CVV:         "123",
	}
}

func validSale() PaymentRequest {
	return PaymentRequest{
		Amount:        10000,
		Currency:      CurrencyTRY,
		Kind:          KindSale,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "192.168.1.10",
		Card:          validCard(),
	}
}

func TestPaymentRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *PaymentRequest)
		wantField string
	}{
		{"valid sale", func(r *PaymentRequest) {}, ""},
		{"zero amount", func(r *PaymentRequest) { r.Amount = 0 }, "amount"},
		{"unknown currency", func(r *PaymentRequest) { r.Currency = "123" }, "currency"},
		{"unknown kind", func(r *PaymentRequest) { r.Kind = "capture" }, "kind"},
		{"too many installments", func(r *PaymentRequest) { r.InstallmentCount = 13 }, "installmentCount"},
		{"bad email", func(r *PaymentRequest) { r.CustomerEmail = "nope" }, "customerEmail"},
		{"bad ip", func(r *PaymentRequest) { r.CustomerIP = "300.1.1.1" }, "customerIp"},
		{"missing card", func(r *PaymentRequest) { r.Card = nil }, "card"},
		{"short pan", func(r *PaymentRequest) { r.Card.Number = "411111111111" }, "card.number"},
		{"luhn failure", func(r *PaymentRequest) { r.Card.Number = "4111111111111112" }, "card.number"},
		{"bad month", func(r *PaymentRequest) { r.Card.ExpireMonth = "13" }, "card.expireMonth"},
		{"bad cvv", func(r *PaymentRequest) { r.Card.CVV = "12" }, "card.cvv"},
		{"non ascii holder", func(r *PaymentRequest) { r.Card.HolderName = "Ayşe" }, "card.holderName"},
		{"refund without order id", func(r *PaymentRequest) { r.Kind = KindRefund; r.Card = nil }, "orderId"},
		{"refund with card", func(r *PaymentRequest) { r.Kind = KindRefund; r.OrderID = "GRN_1_A00001" }, "card"},
		{"bad order id", func(r *PaymentRequest) { r.OrderID = "has space" }, "orderId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSale()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var domainErr *DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, ErrorCodeValidationFailed, domainErr.Code)
			assert.Equal(t, tt.wantField, domainErr.Details["field"])
		})
	}
}

func TestPaymentRequest_ValidRefund(t *testing.T) {
	req := PaymentRequest{
		Amount:        5000,
		Currency:      CurrencyTRY,
		Kind:          KindRefund,
		CustomerEmail: "ayse@example.com",
		CustomerIP:    "10.0.0.1",
		OrderID:       "GRN_1718000000000_K12345",
	}
	assert.NoError(t, req.Validate())
}

func TestMaskPAN(t *testing.T) {
	assert.Equal(t, "4111****1111", MaskPAN("4111111111111111"))
	assert.Equal(t, "5406****0000", MaskPAN("5406670000000000000"))
	assert.Equal(t, "****", MaskPAN("1234"))
	assert.Equal(t, "Card{4111****1111}", validCard().String())
}

func TestGenerateOrderID(t *testing.T) {
	now := time.UnixMilli(1718000000000)
	id, err := GenerateOrderID("GRN", now, nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^GRN_1718000000000_[A-Z][0-9]{5}$`), id)

	// Deterministic source yields a deterministic id.
	first, err := GenerateOrderID("BKG", now, bytes.NewReader(bytes.Repeat([]byte{0}, 64)))
	require.NoError(t, err)
	assert.Equal(t, "BKG_1718000000000_A00000", first)
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "TRY", CurrencyTRY.Symbol())
	assert.Equal(t, "EUR", CurrencyEUR.Symbol())
	assert.Equal(t, "JPY", CurrencyJPY.Symbol())
	assert.Equal(t, "TRY", Currency("999").Symbol())
	assert.False(t, Currency("999").IsKnown())

	c, ok := ParseCurrency("eur")
	assert.True(t, ok)
	assert.Equal(t, CurrencyEUR, c)
	c, ok = ParseCurrency("")
	assert.True(t, ok)
	assert.Equal(t, CurrencyTRY, c)
	_, ok = ParseCurrency("XYZ")
	assert.False(t, ok)

	assert.Equal(t, "100.00 TRY", Amount(10000).Display(CurrencyTRY))
}

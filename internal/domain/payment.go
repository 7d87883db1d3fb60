package domain

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// TransactionKind is the gateway transaction type
type TransactionKind string

const (
	KindSale           TransactionKind = "sales"
	KindPreauth        TransactionKind = "preauth"
	KindRefund         TransactionKind = "refund"
	KindDCCInquiry     TransactionKind = "dccinq"
	KindCommercialCard TransactionKind = "commercialcard"
	KindExtendedCredit TransactionKind = "extendedcredit"
)

// ParseTransactionKind accepts the gateway value or a friendly alias
func ParseTransactionKind(s string) (TransactionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sale", "sales":
		return KindSale, true
	case "preauth":
		return KindPreauth, true
	case "refund":
		return KindRefund, true
	case "dccinq", "dcc-inquiry":
		return KindDCCInquiry, true
	case "commercialcard", "commercial-card":
		return KindCommercialCard, true
	case "extendedcredit", "extended-credit":
		return KindExtendedCredit, true
	}
	return "", false
}

// IsValid reports whether the kind is a gateway transaction type
func (k TransactionKind) IsValid() bool {
	switch k {
	case KindSale, KindPreauth, KindRefund, KindDCCInquiry, KindCommercialCard, KindExtendedCredit:
		return true
	}
	return false
}

// IsRefund reports whether the kind is a refund
func (k TransactionKind) IsRefund() bool {
	return k == KindRefund
}

// RequiresCard reports whether the kind carries a card presentment
func (k TransactionKind) RequiresCard() bool {
	return k != KindRefund
}

// MaxInstallments is the highest installment count the terminal accepts
const MaxInstallments = 12

// PaymentRequest is a single payment attempt. It is never reused across attempts.
type PaymentRequest struct {
	Amount           Amount
	Currency         Currency
	Kind             TransactionKind
	InstallmentCount int
	CustomerEmail    string
	CustomerIP       string
	OrderID          string
	Card             *Card
	CompanyName      string
}

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,36}$`)

// Validate checks the request before any signing or network call
func (r *PaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return NewValidationError("amount", "amount must be greater than zero")
	}
	if !r.Currency.IsKnown() {
		return NewValidationError("currency", fmt.Sprintf("unsupported currency code %q", r.Currency))
	}
	if !r.Kind.IsValid() {
		return NewValidationError("kind", fmt.Sprintf("unsupported transaction kind %q", r.Kind))
	}
	if r.InstallmentCount < 0 || r.InstallmentCount > MaxInstallments {
		return NewValidationError("installmentCount", "installment count must be between 0 and 12")
	}
	if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
		return NewValidationError("customerEmail", "customer email is invalid")
	}
	if net.ParseIP(r.CustomerIP) == nil {
		return NewValidationError("customerIp", "customer IP address is invalid")
	}
	if r.Kind.IsRefund() {
		if r.OrderID == "" {
			return NewValidationError("orderId", "order id is required for refunds")
		}
		if r.Card != nil {
			return NewValidationError("card", "refunds must not carry card data")
		}
	} else if err := r.Card.Validate(); err != nil {
		return err
	}
	if r.OrderID != "" && !orderIDPattern.MatchString(r.OrderID) {
		return NewValidationError("orderId", "order id format is invalid")
	}
	return nil
}

// GenerateOrderID returns <prefix>_<unixMillis>_<letter><5digits>.
// A nil source uses crypto/rand.
func GenerateOrderID(prefix string, now time.Time, source io.Reader) (string, error) {
	if source == nil {
		source = rand.Reader
	}
	letter, err := rand.Int(source, big.NewInt(26))
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	digits, err := rand.Int(source, big.NewInt(100000))
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return fmt.Sprintf("%s_%d_%c%05d", prefix, now.UnixMilli(), rune('A'+letter.Int64()), digits.Int64()), nil
}

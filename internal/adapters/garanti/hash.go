package garanti

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// RedirectHashInput is the ordered input of the 3-D Secure form hash
type RedirectHashInput struct {
	TerminalID        string
	OrderID           string
	Amount            domain.Amount
	Currency          domain.Currency
	SuccessURL        string
	ErrorURL          string
	Kind              domain.TransactionKind
	InstallmentCount  int
	StoreKey          string
	ProvisionPassword string
}

// SaleHashInput is the ordered input of the direct sale/preauth hash
type SaleHashInput struct {
	OrderID      string
	TerminalID   string
	CardNumber   string
	Amount       domain.Amount
	Currency     domain.Currency
	UserPassword string
}

// RefundHashInput is the direct hash input for refunds. It has no card number.
type RefundHashInput struct {
	OrderID      string
	TerminalID   string
	Amount       domain.Amount
	Currency     domain.Currency
	UserPassword string
}

// HashedPassword is SHA1(password + "0" + terminalID), upper hex
func HashedPassword(password, terminalID string) (string, error) {
	b, err := toLatin9(password + "0" + terminalID)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(b)
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

// RedirectHash signs the 3-D Secure redirect form
func RedirectHash(in RedirectHashInput) (string, error) {
	hashed, err := HashedPassword(in.ProvisionPassword, in.TerminalID)
	if err != nil {
		return "", err
	}
	return sha512Upper(
		in.TerminalID,
		in.OrderID,
		formatAmount(in.Amount),
		in.Currency.String(),
		in.SuccessURL,
		in.ErrorURL,
		string(in.Kind),
		formatInstallments(in.InstallmentCount),
		in.StoreKey,
		hashed,
	)
}

// SaleHash signs a direct sale or preauth
func SaleHash(in SaleHashInput) (string, error) {
	hashed, err := HashedPassword(in.UserPassword, in.TerminalID)
	if err != nil {
		return "", err
	}
	return sha512Upper(in.OrderID, in.TerminalID, in.CardNumber, formatAmount(in.Amount), in.Currency.String(), hashed)
}

// RefundHash signs a direct refund
func RefundHash(in RefundHashInput) (string, error) {
	hashed, err := HashedPassword(in.UserPassword, in.TerminalID)
	if err != nil {
		return "", err
	}
	return sha512Upper(in.OrderID, in.TerminalID, formatAmount(in.Amount), in.Currency.String(), hashed)
}

// CallbackHash recomputes the digest over the callback fields listed in hashparams
func CallbackHash(values []string, storeKey string) (string, error) {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, values...)
	parts = append(parts, storeKey)
	return sha512Upper(parts...)
}

func sha512Upper(parts ...string) (string, error) {
	b, err := toLatin9(strings.Join(parts, ""))
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512(b)
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

func formatAmount(a domain.Amount) string {
	return strconv.FormatInt(int64(a), 10)
}

// The gateway hashes a single-payment installment count as an empty string, not "0".
func formatInstallments(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

package garanti

import (
	"fmt"
	"time"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// RedirectCard is the optional card block of the redirect form
type RedirectCard struct {
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVV2        string
}

// RedirectForm is the 3-D Secure payload the browser auto-submits to RedirectURL
type RedirectForm struct {
	Mode               string
	APIVersion         string
	SecurityLevel      string
	TerminalProvUserID string
	TerminalUserID     string
	TerminalMerchantID string
	TerminalID         string
	OrderID            string
	SuccessURL         string
	ErrorURL           string
	CustomerEmail      string
	CustomerIP         string
	CompanyName        string
	Lang               string
	Timestamp          string
	Hash               string
	Amount             string
	Kind               string
	Currency           string
	InstallmentCount   string
	Card               *RedirectCard
}

// Fields flattens the form into the gateway's field names
func (f *RedirectForm) Fields() map[string]string {
	fields := map[string]string{
		"mode":                  f.Mode,
		"apiversion":            f.APIVersion,
		"secure3dsecuritylevel": f.SecurityLevel,
		"terminalprovuserid":    f.TerminalProvUserID,
		"terminaluserid":        f.TerminalUserID,
		"terminalmerchantid":    f.TerminalMerchantID,
		"terminalid":            f.TerminalID,
		"orderid":               f.OrderID,
		"successurl":            f.SuccessURL,
		"errorurl":              f.ErrorURL,
		"customeremailaddress":  f.CustomerEmail,
		"customeripaddress":     f.CustomerIP,
		"companyname":           f.CompanyName,
		"lang":                  f.Lang,
		"txntimestamp":          f.Timestamp,
		"secure3dhash":          f.Hash,
		"txnamount":             f.Amount,
		"txntype":               f.Kind,
		"txncurrencycode":       f.Currency,
		"txninstallmentcount":   f.InstallmentCount,
	}
	if f.Card != nil {
		fields["cardnumber"] = f.Card.Number
		fields["cardexpiredatemonth"] = f.Card.ExpireMonth
		fields["cardexpiredateyear"] = f.Card.ExpireYear
		fields["cardcvv2"] = f.Card.CVV2
	}
	return fields
}

// BuildRedirectForm validates, signs and assembles the redirect form for req.
// req.OrderID must already be assigned.
func BuildRedirectForm(cfg Config, creds Credentials, req *domain.PaymentRequest, now time.Time) (*RedirectForm, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.OrderID == "" {
		return nil, domain.NewValidationError("orderId", "order id must be assigned before signing")
	}
	if req.Kind.IsRefund() {
		return nil, domain.NewValidationError("kind", "refunds are not supported on the redirect flow")
	}

	hash, err := RedirectHash(RedirectHashInput{
		TerminalID:        cfg.TerminalID,
		OrderID:           req.OrderID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		SuccessURL:        cfg.SuccessURL,
		ErrorURL:          cfg.ErrorURL,
		Kind:              req.Kind,
		InstallmentCount:  req.InstallmentCount,
		StoreKey:          creds.StoreKey,
		ProvisionPassword: creds.ProvisionPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("sign redirect form: %w", err)
	}

	companyName := req.CompanyName
	if companyName == "" {
		companyName = cfg.CompanyName
	}

	form := &RedirectForm{
		Mode:               string(cfg.Mode),
		APIVersion:         apiVersion,
		SecurityLevel:      securityLevel,
		TerminalProvUserID: cfg.ProvUserID,
		TerminalUserID:     cfg.UserID,
		TerminalMerchantID: cfg.MerchantID,
		TerminalID:         cfg.TerminalID,
		OrderID:            req.OrderID,
		SuccessURL:         cfg.SuccessURL,
		ErrorURL:           cfg.ErrorURL,
		CustomerEmail:      req.CustomerEmail,
		CustomerIP:         req.CustomerIP,
		CompanyName:        companyName,
		Lang:               cfg.Lang,
		Timestamp:          now.UTC().Format(time.RFC3339),
		Hash:               hash,
		Amount:             formatAmount(req.Amount),
		Kind:               string(req.Kind),
		Currency:           req.Currency.String(),
		InstallmentCount:   formatInstallments(req.InstallmentCount),
	}
	if req.Card != nil {
		form.Card = &RedirectCard{
			Number:      req.Card.Number,
			ExpireMonth: req.Card.ExpireMonth,
			ExpireYear:  req.Card.ExpireYear,
			CVV2:        req.Card.CVV,
		}
	}
	return form, nil
}

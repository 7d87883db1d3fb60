package garanti

import (
	"crypto/subtle"
	"net/url"
	"strconv"
	"strings"

	"github.com/kevin07696/booking-payment-service/internal/domain"
)

// CallbackParser validates and normalizes redirect-flow callbacks
type CallbackParser struct {
	storeKey    string
	requireHash bool
}

// NewCallbackParser creates a parser. With requireHash set, unsigned callbacks are rejected.
func NewCallbackParser(storeKey string, requireHash bool) *CallbackParser {
	return &CallbackParser{storeKey: storeKey, requireHash: requireHash}
}

// ParseCallback extracts the callback fields and checks the signature when one is present
func (p *CallbackParser) ParseCallback(form url.Values) (*domain.GatewayCallback, error) {
	cb := &domain.GatewayCallback{
		OrderID:      firstValue(form, "oid", "orderid"),
		Response:     firstValue(form, "response"),
		ReturnCode:   firstValue(form, "procreturncode"),
		AuthCode:     firstValue(form, "authcode"),
		MDStatus:     firstValue(form, "mdstatus"),
		HostRefNum:   firstValue(form, "hostrefnum"),
		ErrorMessage: firstValue(form, "errmsg", "mderrormessage"),
		Currency:     domain.Currency(firstValue(form, "txncurrencycode")),
	}
	if pan := firstValue(form, "maskedpan", "cardnumber"); pan != "" {
		cb.MaskedPAN = domain.MaskPAN(strings.ReplaceAll(pan, "*", "0"))
	}

	switch {
	case cb.OrderID == "":
		return nil, domain.NewValidationError("oid", "callback is missing the order id")
	case cb.Response == "":
		return nil, domain.NewValidationError("response", "callback is missing the response verdict")
	case cb.ReturnCode == "":
		return nil, domain.NewValidationError("procreturncode", "callback is missing the return code")
	}

	if raw := firstValue(form, "txnamount"); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || amount < 0 {
			return nil, domain.NewValidationError("txnamount", "callback amount is not an integer")
		}
		cb.Amount = domain.Amount(amount)
	}

	verified, err := p.verify(form)
	if err != nil {
		return nil, err
	}
	cb.HashVerified = verified
	return cb, nil
}

func (p *CallbackParser) verify(form url.Values) (bool, error) {
	received := firstValue(form, "hash")
	params := firstValue(form, "hashparams")
	if received == "" || params == "" {
		if p.requireHash {
			return false, domain.NewDomainError(domain.ErrorCodeSecurityHashMismatch, "callback is not signed")
		}
		return false, nil
	}

	names := strings.Split(strings.Trim(params, ":"), ":")
	values := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, firstValue(form, name))
	}

	if expected := firstValue(form, "hashparamsval"); expected != "" && expected != strings.Join(values, "") {
		return false, domain.NewDomainError(domain.ErrorCodeSecurityHashMismatch, "callback hash parameters do not match")
	}

	computed, err := CallbackHash(values, p.storeKey)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeSecurityHashMismatch, "callback hash could not be computed", err)
	}
	if subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToUpper(received))) != 1 {
		return false, domain.NewDomainError(domain.ErrorCodeSecurityHashMismatch, "callback hash mismatch")
	}
	return true, nil
}

// firstValue returns the first non-empty value among keys, matching case-insensitively
func firstValue(form url.Values, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(form.Get(key)); v != "" {
			return v
		}
		for k, vs := range form {
			if strings.EqualFold(k, key) && len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
				return strings.TrimSpace(vs[0])
			}
		}
	}
	return ""
}

package domain

import (
	"fmt"
	"strings"
)

// Card is a card presentment. It is never persisted and never logged unmasked.
type Card struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpireMonth string `json:"expireMonth"`
	ExpireYear  string `json:"expireYear"`
	CVV         string `json:"cvv"`
}

// Validate checks the presentment shape before any signing happens
func (c *Card) Validate() error {
	if c == nil {
		return NewValidationError("card", "card is required")
	}
	if !isASCIIName(c.HolderName) {
		return NewValidationError("card.holderName", "cardholder name must contain only latin letters")
	}
	n := len(c.Number)
	if n < 13 || n > 19 || !isDigits(c.Number) {
		return NewValidationError("card.number", "card number must be 13-19 digits")
	}
	if !luhnValid(c.Number) {
		return NewValidationError("card.number", "card number failed checksum")
	}
	if len(c.ExpireMonth) != 2 || !isDigits(c.ExpireMonth) || c.ExpireMonth < "01" || c.ExpireMonth > "12" {
		return NewValidationError("card.expireMonth", "expiry month must be 01-12")
	}
	if len(c.ExpireYear) != 2 || !isDigits(c.ExpireYear) {
		return NewValidationError("card.expireYear", "expiry year must be 2 digits")
	}
	if l := len(c.CVV); l < 3 || l > 4 || !isDigits(c.CVV) {
		return NewValidationError("card.cvv", "cvv must be 3 or 4 digits")
	}
	return nil
}

// ExpireMMYY returns the expiry in the gateway's MMYY form
func (c *Card) ExpireMMYY() string {
	return c.ExpireMonth + c.ExpireYear
}

// Masked returns the masked PAN
func (c *Card) Masked() string {
	if c == nil {
		return ""
	}
	return MaskPAN(c.Number)
}

// String never exposes the PAN or CVV
func (c Card) String() string {
	return fmt.Sprintf("Card{%s}", MaskPAN(c.Number))
}

// MaskPAN renders a PAN as NNNN****NNNN
func MaskPAN(pan string) string {
	pan = strings.TrimSpace(pan)
	if len(pan) < 8 {
		return "****"
	}
	return pan[:4] + "****" + pan[len(pan)-4:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isASCIIName(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == ' ', r == '.', r == '\'', r == '-':
		default:
			return false
		}
	}
	return true
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

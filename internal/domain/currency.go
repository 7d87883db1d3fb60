package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the gateway's ISO 4217 numeric currency code. The raw code is what
// goes into hashes and XML; the symbol is for display and discount conversion.
type Currency string

const (
	CurrencyTRY Currency = "949"
	CurrencyEUR Currency = "978"
	CurrencyUSD Currency = "840"
	CurrencyGBP Currency = "826"
	CurrencyJPY Currency = "392"
)

var currencySymbols = map[Currency]string{
	CurrencyTRY: "TRY",
	CurrencyEUR: "EUR",
	CurrencyUSD: "USD",
	CurrencyGBP: "GBP",
	CurrencyJPY: "JPY",
}

// Symbol returns the 3-letter code, defaulting to TRY for unknown codes
func (c Currency) Symbol() string {
	if s, ok := currencySymbols[c]; ok {
		return s
	}
	return "TRY"
}

// IsKnown reports whether the code is one of the supported currencies
func (c Currency) IsKnown() bool {
	_, ok := currencySymbols[c]
	return ok
}

// String returns the numeric code
func (c Currency) String() string {
	return string(c)
}

// ParseCurrency accepts either a numeric code or a 3-letter symbol.
// Empty input yields TRY.
func ParseCurrency(s string) (Currency, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CurrencyTRY, true
	}
	if c := Currency(s); c.IsKnown() {
		return c, true
	}
	upper := strings.ToUpper(s)
	for code, symbol := range currencySymbols {
		if symbol == upper {
			return code, true
		}
	}
	return "", false
}

// Amount is an integer amount in minor currency units (e.g. kurus)
type Amount int64

// Decimal returns the amount in major units
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// Display formats the amount as "100.00 TRY"
func (a Amount) Display(c Currency) string {
	return a.Decimal().StringFixed(2) + " " + c.Symbol()
}

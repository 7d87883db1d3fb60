package exchangerate

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// FixedProvider serves a configured EUR→TRY rate and its inverse.
// It stands in until a live rate feed is wired.
type FixedProvider struct {
	eurTry decimal.Decimal
}

var _ ports.ExchangeRateProvider = (*FixedProvider)(nil)

// NewFixedProvider parses eurTry (e.g. "35.00")
func NewFixedProvider(eurTry string) (*FixedProvider, error) {
	rate, err := decimal.NewFromString(eurTry)
	if err != nil {
		return nil, fmt.Errorf("parse EUR/TRY rate %q: %w", eurTry, err)
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("EUR/TRY rate must be positive, got %s", rate)
	}
	return &FixedProvider{eurTry: rate}, nil
}

// Rate supports EUR↔TRY and identity conversions only
func (p *FixedProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	switch {
	case from == to:
		return decimal.NewFromInt(1), nil
	case from == "EUR" && to == "TRY":
		return p.eurTry, nil
	case from == "TRY" && to == "EUR":
		return decimal.NewFromInt(1).DivRound(p.eurTry, 12), nil
	}
	return decimal.Zero, domain.NewDomainError(domain.ErrorCodeUnsupportedConversion,
		fmt.Sprintf("no exchange rate from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

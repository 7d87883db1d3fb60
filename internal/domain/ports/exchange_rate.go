package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// ExchangeRateProvider supplies the conversion rate between two currency symbols.
type ExchangeRateProvider interface {
	// Rate returns how many units of `to` one unit of `from` buys
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

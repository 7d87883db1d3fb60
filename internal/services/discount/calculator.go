package discount

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/kevin07696/booking-payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// RateTable returns how many units of `to` one unit of `from` buys
type RateTable func(from, to string) (decimal.Decimal, error)

// ProviderRates binds an exchange-rate provider to ctx
func ProviderRates(ctx context.Context, provider ports.ExchangeRateProvider) RateTable {
	return func(from, to string) (decimal.Decimal, error) {
		return provider.Rate(ctx, from, to)
	}
}

// CalculationInput describes one discount application. Money values are minor units.
// For fixed discounts MinPurchase and MaxDiscount are in DiscountCurrency when it is
// set, otherwise in PaymentCurrency. Percentage discounts ignore DiscountCurrency and
// read both bounds in PaymentCurrency. Value is percentage points for percentage discounts.
type CalculationInput struct {
	OriginalAmount   domain.Amount
	Kind             domain.DiscountKind
	Value            int64
	DiscountCurrency string
	PaymentCurrency  string
	MinPurchase      *int64
	MaxDiscount      *int64
}

// CalculationResult is the outcome of Calculate. An invalid result is a normal
// outcome with a Reason, not an error.
type CalculationResult struct {
	DiscountAmount domain.Amount
	FinalAmount    domain.Amount
	Valid          bool
	Reason         string

	// Set when the purchase is below the minimum.
	ShortfallPayment  domain.Amount
	ShortfallDiscount domain.Amount
}

var hundred = decimal.NewFromInt(100)

// Calculate applies the discount rules in order: minimum purchase, percentage or
// fixed amount (converted into the payment currency), maximum discount, and a
// clamp to the original amount.
func Calculate(in CalculationInput, rates RateTable) (CalculationResult, error) {
	payCur := strings.ToUpper(in.PaymentCurrency)
	discCur := strings.ToUpper(in.DiscountCurrency)
	if discCur == "" || in.Kind == domain.DiscountPercentage {
		discCur = payCur
	}
	original := in.OriginalAmount
	if original < 0 {
		return CalculationResult{}, domain.NewValidationError("amount", "amount must not be negative")
	}
	if in.Value < 0 {
		return invalid(original, "discount value must not be negative"), nil
	}

	if in.MinPurchase != nil {
		minimum, err := convert(domain.Amount(*in.MinPurchase), discCur, payCur, rates)
		if err != nil {
			return CalculationResult{}, err
		}
		if original < minimum {
			inDiscountCur, err := convert(original, payCur, discCur, rates)
			if err != nil {
				return CalculationResult{}, err
			}
			res := invalid(original, fmt.Sprintf("minimum purchase of %s not reached",
				formatMinor(*in.MinPurchase, discCur)))
			res.ShortfallPayment = minimum - original
			res.ShortfallDiscount = domain.Amount(*in.MinPurchase) - inDiscountCur
			if res.ShortfallDiscount < 0 {
				res.ShortfallDiscount = 0
			}
			return res, nil
		}
	}

	var discount domain.Amount
	switch in.Kind {
	case domain.DiscountPercentage:
		pct := decimal.NewFromInt(int64(original)).
			Mul(decimal.NewFromInt(in.Value)).
			Div(hundred).
			Round(0)
		discount = domain.Amount(pct.IntPart())
	case domain.DiscountFixed:
		converted, err := convert(domain.Amount(in.Value), discCur, payCur, rates)
		if err != nil {
			return CalculationResult{}, err
		}
		discount = converted
	default:
		return invalid(original, fmt.Sprintf("unknown discount kind %q", in.Kind)), nil
	}

	if in.MaxDiscount != nil {
		ceiling, err := convert(domain.Amount(*in.MaxDiscount), discCur, payCur, rates)
		if err != nil {
			return CalculationResult{}, err
		}
		if discount > ceiling {
			discount = ceiling
		}
	}
	if discount > original {
		discount = original
	}

	final := original - discount
	if final < 0 {
		final = 0
	}
	return CalculationResult{
		DiscountAmount: discount,
		FinalAmount:    final,
		Valid:          true,
	}, nil
}

func invalid(original domain.Amount, reason string) CalculationResult {
	return CalculationResult{
		FinalAmount: original,
		Reason:      reason,
	}
}

// convert rounds half-up to whole minor units. Same-currency amounts pass through.
func convert(a domain.Amount, from, to string, rates RateTable) (domain.Amount, error) {
	if from == to || a == 0 {
		return a, nil
	}
	if rates == nil {
		return 0, domain.NewDomainError(domain.ErrorCodeUnsupportedConversion,
			fmt.Sprintf("no exchange rate from %s to %s", from, to)).
			WithDetail("from", from).
			WithDetail("to", to)
	}
	rate, err := rates(from, to)
	if err != nil {
		return 0, err
	}
	converted := decimal.NewFromInt(int64(a)).Mul(rate).Round(0)
	return domain.Amount(converted.IntPart()), nil
}

func formatMinor(v int64, currency string) string {
	return decimal.New(v, -2).StringFixed(2) + " " + currency
}

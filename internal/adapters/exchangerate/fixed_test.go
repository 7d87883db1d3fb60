package exchangerate

import (
	"context"
	"testing"

	"github.com/kevin07696/booking-payment-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedProvider(t *testing.T) {
	p, err := NewFixedProvider("35.00")
	require.NoError(t, err)
	ctx := context.Background()

	rate, err := p.Rate(ctx, "EUR", "TRY")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("35").Equal(rate))

	inverse, err := p.Rate(ctx, "try", "eur")
	require.NoError(t, err)
	assert.Equal(t, "0.028571428571", inverse.String())

	same, err := p.Rate(ctx, "USD", "USD")
	require.NoError(t, err)
	assert.True(t, same.Equal(decimal.NewFromInt(1)))

	_, err = p.Rate(ctx, "USD", "TRY")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeUnsupportedConversion))
}

func TestNewFixedProvider_Invalid(t *testing.T) {
	_, err := NewFixedProvider("abc")
	assert.Error(t, err)
	_, err = NewFixedProvider("0")
	assert.Error(t, err)
}

package rates

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ConversionScale is the fractional-digit scale every conversion is
// rounded to, half-up. One constant for all call sites keeps repeated
// conversions of the same inputs reproducible.
const ConversionScale = 2

// RateSource resolves a currency's rate against the base currency.
type RateSource interface {
	RateToBase(ctx context.Context, code string) (decimal.Decimal, error)
}

// Converter derives cross-rates between any two currencies via their
// rates to the base currency.
type Converter struct {
	rates RateSource
}

func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// Convert converts amount from one currency to another. Identical
// currencies return the amount untouched, with no rate lookup and no
// rounding. Otherwise the result is amount * (toRate / fromRate),
// rounded half-up at ConversionScale. A missing rate on either side is
// core.ErrRateUnavailable, never a silent fallback.
func (c *Converter) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	fromRate, err := c.rates.RateToBase(ctx, from)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	toRate, err := c.rates.RateToBase(ctx, to)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}

	return amount.Mul(toRate).DivRound(fromRate, ConversionScale), nil
}

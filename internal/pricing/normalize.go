// Package pricing converts per-gram quotes into the published local price.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// ErrInvalidPrice is returned for results that must not be persisted
var ErrInvalidPrice = errors.New("invalid price")

// Normalize returns round(perGram * rate * premium, 2).
// Non-positive inputs or results are rejected.
func Normalize(perGram, rate, premium decimal.Decimal) (decimal.Decimal, error) {
	if !perGram.IsPositive() || !rate.IsPositive() || !premium.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: per_gram=%s rate=%s premium=%s", ErrInvalidPrice, perGram, rate, premium)
	}
	price := perGram.Mul(rate).Mul(premium).Round(2)
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s rounds to zero", ErrInvalidPrice, price)
	}
	return price, nil
}

// RateSource supplies conversion rates. A zero rate means the pair is unknown
// and the quote is rejected.
type RateSource interface {
	Rate(ctx context.Context, from, to string) decimal.Decimal
}

// Converter turns quotes into prices in one target currency. Premiums apply
// only to quotes that need conversion into a currency listed in premiums.
type Converter struct {
	target   string
	premiums map[string]decimal.Decimal
	rates    RateSource
}

// NewConverter creates a converter to target
func NewConverter(target string, premiums map[string]decimal.Decimal, rates RateSource) *Converter {
	return &Converter{
		target:   target,
		premiums: premiums,
		rates:    rates,
	}
}

// Currency returns the target currency
func (c *Converter) Currency() string {
	return c.target
}

// PriceType labels prices produced from q
func (c *Converter) PriceType(q models.Quote) string {
	if q.Currency == c.target {
		return models.PriceTypeMarket
	}
	if _, ok := c.premiums[c.target]; ok {
		return models.PriceTypeDigitalGold
	}
	return models.PriceTypeMarket
}

// Convert computes the target-currency price for q. A quote already in the
// target currency is a local market price and is only rounded.
func (c *Converter) Convert(ctx context.Context, q models.Quote) (decimal.Decimal, error) {
	if q.Currency == c.target {
		return Normalize(q.PerGram, decimal.NewFromInt(1), decimal.NewFromInt(1))
	}

	premium, ok := c.premiums[c.target]
	if !ok {
		premium = decimal.NewFromInt(1)
	}
	rate := c.rates.Rate(ctx, q.Currency, c.target)
	return Normalize(q.PerGram, rate, premium)
}

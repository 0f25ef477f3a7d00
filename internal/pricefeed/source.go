// Package pricefeed fetches the spot price from an ordered list of public
// sources, falling through to the next source whenever one fails.
package pricefeed

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// ErrNoPrice is returned by an extractor or source that found no usable number
var ErrNoPrice = errors.New("no price found")

// DefaultTimeout bounds a single source call when the source does not set its own
const DefaultTimeout = 5 * time.Second

// gramsPerTroyOunce converts ounce quotes to per-gram prices
var gramsPerTroyOunce = decimal.RequireFromString("31.1035")

// Source is one external price source together with its parsing strategy
type Source interface {
	Name() string
	Fetch(ctx context.Context) (models.Quote, error)
}

// Unit is the mass unit a source quotes in
type Unit string

// Supported units
const (
	UnitOunce    Unit = "ounce"
	UnitGram     Unit = "gram"
	UnitTenGrams Unit = "10gram"
)

// PerGram converts a price quoted in u to a per-gram price
func (u Unit) PerGram(price decimal.Decimal) decimal.Decimal {
	switch u {
	case UnitOunce:
		return price.Div(gramsPerTroyOunce)
	case UnitTenGrams:
		return price.Div(decimal.NewFromInt(10))
	default:
		return price
	}
}

type timeoutSource interface {
	Timeout() time.Duration
}

func timeoutFor(s Source) time.Duration {
	if ts, ok := s.(timeoutSource); ok && ts.Timeout() > 0 {
		return ts.Timeout()
	}
	return DefaultTimeout
}

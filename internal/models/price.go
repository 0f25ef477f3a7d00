package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetalGold is the only metal currently tracked
const MetalGold = "gold"

// Price type constants
const (
	PriceTypeDigitalGold = "digital_gold"
	PriceTypeMarket      = "market"
)

// PriceSnapshot is one persisted price observation in the local currency
type PriceSnapshot struct {
	ID        int64           `json:"id"`
	Metal     string          `json:"metal"`
	Price     decimal.Decimal `json:"price"`
	PriceType string          `json:"price_type"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Quote is a normalized per-gram price returned by a price source
type Quote struct {
	PerGram  decimal.Decimal `json:"per_gram"`
	Currency string          `json:"currency"`
	Source   string          `json:"source"`
}

// LivePrice is the in-memory view of the most recent computed price.
// Values are treated as immutable once published.
type LivePrice struct {
	Metal     string          `json:"metal"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	PriceType string          `json:"price_type"`
	Source    string          `json:"source,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LivePrice rebuilds the live view from a persisted snapshot.
// Snapshots written before price types were recorded read as digital gold.
func (s PriceSnapshot) LivePrice(currency string) LivePrice {
	pt := s.PriceType
	if pt == "" {
		pt = PriceTypeDigitalGold
	}
	return LivePrice{
		Metal:     s.Metal,
		Price:     s.Price,
		Currency:  currency,
		PriceType: pt,
		Source:    "snapshot",
		UpdatedAt: s.FetchedAt,
	}
}

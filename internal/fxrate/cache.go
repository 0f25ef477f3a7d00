// Package fxrate caches currency conversion rates with a stale fallback.
package fxrate

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/metrics"
	"go.uber.org/zap"
)

var errInvalidRate = errors.New("invalid exchange rate")

// DefaultTTL is how long a live rate is served without a network call
const DefaultTTL = time.Hour

type entry struct {
	rate      decimal.Decimal
	fetchedAt time.Time
}

// Cache serves exchange rates, refreshing them from a Provider at most once per TTL.
// Rate never returns an error: on lookup failure it returns the last known
// rate, then a configured default. A pair with neither yields zero, which
// callers must treat as unknown.
type Cache struct {
	provider Provider
	ttl      time.Duration
	defaults map[string]decimal.Decimal
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewCache creates a rate cache. defaults maps "FROM:TO" pairs to fallback rates.
func NewCache(provider Provider, ttl time.Duration, defaults map[string]float64, logger *zap.Logger, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	d := make(map[string]decimal.Decimal, len(defaults))
	for pair, r := range defaults {
		d[pair] = decimal.NewFromFloat(r)
	}
	return &Cache{
		provider: provider,
		ttl:      ttl,
		defaults: d,
		logger:   logger.Named("fxrate"),
		metrics:  m,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
}

// PairKey formats a currency pair the way defaults are keyed
func PairKey(from, to string) string {
	return from + ":" + to
}

// Rate returns the conversion rate from -> to
func (c *Cache) Rate(ctx context.Context, from, to string) decimal.Decimal {
	if from == to {
		return decimal.NewFromInt(1)
	}
	key := PairKey(from, to)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()

	if ok && c.now().Sub(cached.fetchedAt) < c.ttl {
		c.metrics.RateLookup("cached")
		return cached.rate
	}

	live, err := c.provider.Lookup(ctx, from, to)
	if err == nil && (math.IsNaN(live) || math.IsInf(live, 0) || live <= 0) {
		err = errInvalidRate
	}
	if err == nil {
		rate := decimal.NewFromFloat(live)
		c.mu.Lock()
		c.entries[key] = entry{rate: rate, fetchedAt: c.now()}
		c.mu.Unlock()
		c.metrics.RateLookup("live")
		c.logger.Debug("exchange rate refreshed", zap.String("pair", key), zap.String("rate", rate.String()))
		return rate
	}

	if ok {
		c.metrics.RateLookup("stale")
		c.logger.Warn("exchange rate lookup failed, using stale rate",
			zap.String("pair", key), zap.Time("fetched_at", cached.fetchedAt), zap.Error(err))
		return cached.rate
	}

	if def, found := c.defaults[key]; found {
		c.metrics.RateLookup("default")
		c.logger.Warn("exchange rate lookup failed, using default rate",
			zap.String("pair", key), zap.String("rate", def.String()), zap.Error(err))
		return def
	}
	c.metrics.RateLookup("unknown")
	c.logger.Error("exchange rate lookup failed with no fallback", zap.String("pair", key), zap.Error(err))
	return decimal.Zero
}

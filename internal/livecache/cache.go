// Package livecache holds the most recent computed price in memory.
package livecache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/trogers1052/gold-price-alerts/internal/database"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// SnapshotStore is the read side of the snapshot table used on cold start
type SnapshotStore interface {
	GetLatestPriceSnapshot(ctx context.Context, metal string) (*models.PriceSnapshot, error)
}

// Cache is a single-slot, lock-free price holder. Stored values are never
// mutated; Set replaces the whole value.
type Cache struct {
	current atomic.Pointer[models.LivePrice]
}

// New creates an empty cache
func New() *Cache {
	return &Cache{}
}

// Get returns the current price, if any
func (c *Cache) Get() (models.LivePrice, bool) {
	p := c.current.Load()
	if p == nil {
		return models.LivePrice{}, false
	}
	return *p, true
}

// Set publishes p as the current price
func (c *Cache) Set(p models.LivePrice) {
	c.current.Store(&p)
}

// Hydrate seeds the cache from the latest persisted snapshot. A missing
// snapshot leaves the cache empty and is not an error.
func (c *Cache) Hydrate(ctx context.Context, store SnapshotStore, metal, currency string) (bool, error) {
	s, err := store.GetLatestPriceSnapshot(ctx, metal)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to hydrate live price: %w", err)
	}

	lp := s.LivePrice(currency)
	c.current.CompareAndSwap(nil, &lp)
	return true, nil
}

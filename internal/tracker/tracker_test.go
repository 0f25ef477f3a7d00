package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/gold-price-alerts/internal/fxrate"
	"github.com/trogers1052/gold-price-alerts/internal/livecache"
	"github.com/trogers1052/gold-price-alerts/internal/metrics"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"github.com/trogers1052/gold-price-alerts/internal/pricing"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	quote models.Quote
	ok    bool
	mu    sync.Mutex
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context) (models.Quote, bool) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.quote, f.ok
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixedRate struct{ rate decimal.Decimal }

func (r fixedRate) Rate(ctx context.Context, from, to string) decimal.Decimal { return r.rate }

type fakeStore struct {
	snapshots []*models.PriceSnapshot
	err       error
}

func (s *fakeStore) CreatePriceSnapshot(ctx context.Context, snap *models.PriceSnapshot) error {
	if s.err != nil {
		return s.err
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

type fakeEvaluator struct {
	prices []decimal.Decimal
	err    error
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, price decimal.Decimal) (int, error) {
	e.prices = append(e.prices, price)
	return 0, e.err
}

type fixture struct {
	fetcher   *fakeFetcher
	store     *fakeStore
	live      *livecache.Cache
	evaluator *fakeEvaluator
	published []models.LivePrice
	tracker   *Tracker
}

func newFixture(quote models.Quote, ok bool) *fixture {
	f := &fixture{
		fetcher:   &fakeFetcher{quote: quote, ok: ok},
		store:     &fakeStore{},
		live:      livecache.New(),
		evaluator: &fakeEvaluator{},
	}
	conv := pricing.NewConverter("INR",
		map[string]decimal.Decimal{"INR": decimal.RequireFromString("1.12")},
		fixedRate{rate: decimal.NewFromInt(83)},
	)
	f.tracker = New(models.MetalGold, f.fetcher, conv, f.store, f.live, f.evaluator, zap.NewNop(),
		WithMetrics(metrics.New()),
		WithPublisher("record", func(ctx context.Context, p models.LivePrice) error {
			f.published = append(f.published, p)
			return nil
		}),
	)
	return f
}

func TestRunOnce(t *testing.T) {
	ctx := context.Background()
	spot := models.Quote{PerGram: decimal.NewFromInt(65), Currency: "USD", Source: "goldprice-json"}

	t.Run("successful cycle", func(t *testing.T) {
		f := newFixture(spot, true)

		assert.Equal(t, OutcomeOK, f.tracker.RunOnce(ctx))

		require.Len(t, f.store.snapshots, 1)
		assert.Equal(t, "6042.40", f.store.snapshots[0].Price.StringFixed(2))
		assert.Equal(t, models.MetalGold, f.store.snapshots[0].Metal)
		assert.Equal(t, models.PriceTypeDigitalGold, f.store.snapshots[0].PriceType)

		lp, ok := f.live.Get()
		require.True(t, ok)
		assert.Equal(t, "6042.40", lp.Price.StringFixed(2))
		assert.Equal(t, "INR", lp.Currency)
		assert.Equal(t, models.PriceTypeDigitalGold, lp.PriceType)
		assert.Equal(t, "goldprice-json", lp.Source)

		require.Len(t, f.published, 1)
		require.Len(t, f.evaluator.prices, 1)
		assert.True(t, f.evaluator.prices[0].Equal(lp.Price))
	})

	t.Run("all sources failed", func(t *testing.T) {
		f := newFixture(models.Quote{}, false)

		assert.Equal(t, OutcomeNoPrice, f.tracker.RunOnce(ctx))
		assert.Empty(t, f.store.snapshots)
		_, ok := f.live.Get()
		assert.False(t, ok)
		assert.Empty(t, f.published)
		assert.Empty(t, f.evaluator.prices)
	})

	t.Run("invalid price is rejected", func(t *testing.T) {
		f := newFixture(models.Quote{PerGram: decimal.RequireFromString("0.00001"), Currency: "USD"}, true)

		assert.Equal(t, OutcomeRejected, f.tracker.RunOnce(ctx))
		assert.Empty(t, f.store.snapshots)
		_, ok := f.live.Get()
		assert.False(t, ok)
		assert.Empty(t, f.evaluator.prices)
	})

	t.Run("snapshot failure still publishes and evaluates", func(t *testing.T) {
		f := newFixture(spot, true)
		f.store.err = errors.New("db down")

		assert.Equal(t, OutcomeOK, f.tracker.RunOnce(ctx))
		_, ok := f.live.Get()
		assert.True(t, ok)
		assert.Len(t, f.evaluator.prices, 1)
	})

	t.Run("evaluation failure keeps earlier steps", func(t *testing.T) {
		f := newFixture(spot, true)
		f.evaluator.err = errors.New("db down")

		assert.Equal(t, OutcomeOK, f.tracker.RunOnce(ctx))
		assert.Len(t, f.store.snapshots, 1)
		_, ok := f.live.Get()
		assert.True(t, ok)
	})

	t.Run("publisher failure is ignored", func(t *testing.T) {
		f := newFixture(spot, true)
		f.tracker.publishers = append([]publisher{{name: "broken", fn: func(ctx context.Context, p models.LivePrice) error {
			return errors.New("redis down")
		}}}, f.tracker.publishers...)

		assert.Equal(t, OutcomeOK, f.tracker.RunOnce(ctx))
		assert.Len(t, f.published, 1)
		assert.Len(t, f.evaluator.prices, 1)
	})

	t.Run("local market quote skips premium", func(t *testing.T) {
		f := newFixture(models.Quote{PerGram: decimal.RequireFromString("7420.5"), Currency: "INR", Source: "goodreturns-inr"}, true)

		assert.Equal(t, OutcomeOK, f.tracker.RunOnce(ctx))
		lp, _ := f.live.Get()
		assert.Equal(t, "7420.50", lp.Price.StringFixed(2))
		assert.Equal(t, models.PriceTypeMarket, lp.PriceType)
		require.Len(t, f.store.snapshots, 1)
		assert.Equal(t, models.PriceTypeMarket, f.store.snapshots[0].PriceType)
	})
}

type failingProvider struct{}

func (failingProvider) Lookup(ctx context.Context, from, to string) (float64, error) {
	return 0, errors.New("rate service unavailable")
}

func TestRunOnceUnknownRate(t *testing.T) {
	f := newFixture(models.Quote{PerGram: decimal.NewFromInt(60), Currency: "EUR", Source: "eu-feed"}, true)
	rates := fxrate.NewCache(failingProvider{}, time.Hour, map[string]float64{"USD:INR": 83.0}, zap.NewNop(), nil)
	f.tracker.converter = pricing.NewConverter("INR",
		map[string]decimal.Decimal{"INR": decimal.RequireFromString("1.12")},
		rates,
	)

	assert.Equal(t, OutcomeRejected, f.tracker.RunOnce(context.Background()))
	assert.Empty(t, f.store.snapshots)
	_, ok := f.live.Get()
	assert.False(t, ok)
	assert.Empty(t, f.evaluator.prices)
}

func TestRunOnceBoundsPublishers(t *testing.T) {
	f := newFixture(models.Quote{PerGram: decimal.NewFromInt(65), Currency: "USD", Source: "goldprice-json"}, true)
	f.tracker.pubTimeout = 50 * time.Millisecond

	var sawDeadline bool
	f.tracker.publishers = append([]publisher{{name: "stuck", fn: func(ctx context.Context, p models.LivePrice) error {
		_, sawDeadline = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	}}}, f.tracker.publishers...)

	start := time.Now()
	assert.Equal(t, OutcomeOK, f.tracker.RunOnce(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, sawDeadline)
	assert.Len(t, f.published, 1)
	assert.Len(t, f.evaluator.prices, 1)
}

func TestRun(t *testing.T) {
	f := newFixture(models.Quote{}, false)
	f.tracker.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.tracker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.fetcher.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

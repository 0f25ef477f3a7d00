// Package tracker runs the periodic price acquisition cycle.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/metrics"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"go.uber.org/zap"
)

// DefaultInterval is the time between cycles
const DefaultInterval = 5 * time.Minute

// DefaultPublishTimeout bounds each secondary publisher call
const DefaultPublishTimeout = 5 * time.Second

// Outcome of one cycle
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNoPrice  Outcome = "no_price"
	OutcomeRejected Outcome = "rejected"
)

// QuoteFetcher acquires a per-gram quote from any available source
type QuoteFetcher interface {
	Fetch(ctx context.Context) (models.Quote, bool)
}

// Converter turns a quote into the published local price
type Converter interface {
	Convert(ctx context.Context, q models.Quote) (decimal.Decimal, error)
	Currency() string
	PriceType(q models.Quote) string
}

// SnapshotWriter persists prices
type SnapshotWriter interface {
	CreatePriceSnapshot(ctx context.Context, s *models.PriceSnapshot) error
}

// LiveCache holds the current price for readers
type LiveCache interface {
	Set(p models.LivePrice)
}

// Evaluator fires alerts satisfied by a price
type Evaluator interface {
	Evaluate(ctx context.Context, price decimal.Decimal) (int, error)
}

// PublishFunc forwards a published price to a secondary consumer
type PublishFunc func(ctx context.Context, p models.LivePrice) error

type publisher struct {
	name string
	fn   PublishFunc
}

// Tracker wires one acquisition cycle: fetch, convert, persist, publish, evaluate
type Tracker struct {
	metal      string
	fetcher    QuoteFetcher
	converter  Converter
	store      SnapshotWriter
	live       LiveCache
	evaluator  Evaluator
	publishers []publisher
	interval   time.Duration
	pubTimeout time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a Tracker
type Option func(*Tracker)

// WithPublisher adds a best-effort publisher run after the live cache is set
func WithPublisher(name string, fn PublishFunc) Option {
	return func(t *Tracker) { t.publishers = append(t.publishers, publisher{name: name, fn: fn}) }
}

// WithInterval overrides DefaultInterval
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithPublishTimeout overrides DefaultPublishTimeout
func WithPublishTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.pubTimeout = d
		}
	}
}

// WithMetrics records cycle outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// New creates a Tracker
func New(metal string, fetcher QuoteFetcher, converter Converter, store SnapshotWriter, live LiveCache, evaluator Evaluator, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		metal:      metal,
		fetcher:    fetcher,
		converter:  converter,
		store:      store,
		live:       live,
		evaluator:  evaluator,
		interval:   DefaultInterval,
		pubTimeout: DefaultPublishTimeout,
		logger:     logger.Named("tracker"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RunOnce executes a single cycle. Only a missing or invalid price stops
// the cycle; persistence, publishing and evaluation failures are logged.
func (t *Tracker) RunOnce(ctx context.Context) Outcome {
	start := time.Now()
	log := t.logger.With(zap.String("cycle_id", uuid.NewString()))

	outcome := t.run(ctx, log)
	t.metrics.CycleFinished(string(outcome), time.Since(start))
	log.Info("cycle finished", zap.String("outcome", string(outcome)), zap.Duration("took", time.Since(start)))
	return outcome
}

func (t *Tracker) run(ctx context.Context, log *zap.Logger) Outcome {
	quote, ok := t.fetcher.Fetch(ctx)
	if !ok {
		log.Warn("no price available from any source")
		return OutcomeNoPrice
	}

	price, err := t.converter.Convert(ctx, quote)
	if err != nil {
		log.Error("computed price rejected", zap.String("source", quote.Source), zap.Error(err))
		return OutcomeRejected
	}

	now := t.now().UTC()
	priceType := t.converter.PriceType(quote)
	snap := &models.PriceSnapshot{Metal: t.metal, Price: price, PriceType: priceType, FetchedAt: now}
	if err := t.store.CreatePriceSnapshot(ctx, snap); err != nil {
		t.metrics.SnapshotWriteFailed()
		log.Error("failed to persist snapshot", zap.Error(err))
	}

	lp := models.LivePrice{
		Metal:     t.metal,
		Price:     price,
		Currency:  t.converter.Currency(),
		PriceType: priceType,
		Source:    quote.Source,
		UpdatedAt: now,
	}
	t.live.Set(lp)
	f, _ := price.Float64()
	t.metrics.PricePublished(lp.Currency, f)
	log.Info("price updated",
		zap.String("price", price.StringFixed(2)),
		zap.String("currency", lp.Currency),
		zap.String("source", quote.Source),
	)

	for _, p := range t.publishers {
		t.publish(ctx, log, p, lp)
	}

	triggered, err := t.evaluator.Evaluate(ctx, price)
	if err != nil {
		log.Error("alert evaluation failed", zap.Error(err))
	} else if triggered > 0 {
		log.Info("alerts triggered", zap.Int("count", triggered))
	}

	return OutcomeOK
}

func (t *Tracker) publish(ctx context.Context, log *zap.Logger, p publisher, lp models.LivePrice) {
	pctx, cancel := context.WithTimeout(ctx, t.pubTimeout)
	defer cancel()

	if err := p.fn(pctx, lp); err != nil {
		log.Warn("failed to publish price", zap.String("publisher", p.name), zap.Error(err))
	}
}

// Run executes a cycle immediately and then every interval until ctx is done
func (t *Tracker) Run(ctx context.Context) {
	t.logger.Info("tracker started", zap.Duration("interval", t.interval))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopped")
			return
		case <-ticker.C:
			t.RunOnce(ctx)
		}
	}
}

package pricefeed

import (
	"context"
	"fmt"

	"github.com/trogers1052/gold-price-alerts/internal/metrics"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Chain tries sources in priority order and returns the first quote found.
// Source failures are logged and swallowed; the chain itself never errors.
type Chain struct {
	sources []Source
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewChain creates a chain over sources in the given order
func NewChain(logger *zap.Logger, m *metrics.Metrics, sources ...Source) *Chain {
	return &Chain{
		sources: sources,
		logger:  logger.Named("pricefeed"),
		metrics: m,
	}
}

// Names lists the sources in priority order
func (c *Chain) Names() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the first quote any source produces, or false if all fail
func (c *Chain) Fetch(ctx context.Context) (models.Quote, bool) {
	var errs error
	for _, s := range c.sources {
		q, err := c.try(ctx, s)
		c.metrics.SourceResult(s.Name(), err == nil)
		if err == nil {
			c.logger.Debug("price source succeeded",
				zap.String("source", s.Name()),
				zap.String("per_gram", q.PerGram.StringFixed(4)),
				zap.String("currency", q.Currency),
			)
			return q, true
		}

		c.logger.Warn("price source failed", zap.String("source", s.Name()), zap.Error(err))
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Error("all price sources failed", zap.Error(errs))
	return models.Quote{}, false
}

func (c *Chain) try(ctx context.Context, s Source) (q models.Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, timeoutFor(s))
	defer cancel()

	q, err = s.Fetch(ctx)
	if err != nil {
		return models.Quote{}, err
	}
	if !q.PerGram.IsPositive() {
		return models.Quote{}, ErrNoPrice
	}
	if q.Source == "" {
		q.Source = s.Name()
	}
	return q, nil
}

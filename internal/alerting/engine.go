package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/metrics"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
	"go.uber.org/zap"
)

// DefaultNotifyTimeout bounds each notification send and event publish
const DefaultNotifyTimeout = 10 * time.Second

// AlertStore is the persistence the engine needs. TriggerAlert must only
// report true to the single caller that moved the alert out of pending.
type AlertStore interface {
	GetPendingAlerts(ctx context.Context, metal string) ([]*models.PendingAlert, error)
	TriggerAlert(ctx context.Context, alertID int64, price decimal.Decimal) (bool, error)
}

// EventPublisher receives triggered alerts, e.g. a Kafka producer
type EventPublisher interface {
	PublishAlertTriggered(ctx context.Context, a *models.Alert, price decimal.Decimal) error
}

// Engine checks pending alerts against a price and fires the ones crossed
type Engine struct {
	store         AlertStore
	notifier      notify.Notifier
	events        EventPublisher
	metal         string
	notifyTimeout time.Duration
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithEvents publishes an event for every triggered alert
func WithEvents(p EventPublisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithNotifyTimeout overrides DefaultNotifyTimeout
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.notifyTimeout = d
		}
	}
}

// WithMetrics records trigger and notification counters
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine for metal
func NewEngine(store AlertStore, notifier notify.Notifier, metal string, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		notifier:      notifier,
		metal:         metal,
		notifyTimeout: DefaultNotifyTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate triggers every pending alert satisfied by price and notifies
// each owner once. It returns the number of alerts this call triggered.
// Concurrent calls never notify the same alert twice.
func (e *Engine) Evaluate(ctx context.Context, price decimal.Decimal) (int, error) {
	pending, err := e.store.GetPendingAlerts(ctx, e.metal)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending alerts: %w", err)
	}

	triggered := 0
	for _, p := range pending {
		if !p.ShouldTrigger(price) {
			continue
		}

		won, err := e.store.TriggerAlert(ctx, p.ID, price)
		if err != nil {
			e.logger.Error("failed to trigger alert", zap.Int64("alert_id", p.ID), zap.Error(err))
			continue
		}
		if !won {
			e.logger.Debug("alert already triggered", zap.Int64("alert_id", p.ID))
			continue
		}

		triggered++
		e.metrics.AlertTriggered()
		e.logger.Info("alert triggered",
			zap.Int64("alert_id", p.ID),
			zap.String("direction", p.Direction),
			zap.String("target", p.TargetPrice.String()),
			zap.String("price", price.StringFixed(2)),
		)

		e.notify(ctx, p, price)

		if e.events != nil {
			e.publish(ctx, p, price)
		}
	}

	return triggered, nil
}

func (e *Engine) publish(ctx context.Context, p *models.PendingAlert, price decimal.Decimal) {
	pctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	if err := e.events.PublishAlertTriggered(pctx, &p.Alert, price); err != nil {
		e.logger.Warn("failed to publish alert event", zap.Int64("alert_id", p.ID), zap.Error(err))
	}
}

func (e *Engine) notify(ctx context.Context, p *models.PendingAlert, price decimal.Decimal) {
	nctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	if err := e.notifier.Send(nctx, p.DeviceToken, BuildMessage(&p.Alert, price)); err != nil {
		e.metrics.NotificationFailed()
		e.logger.Error("failed to send notification", zap.Int64("alert_id", p.ID), zap.Error(err))
	}
}

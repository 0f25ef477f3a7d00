// Package metrics exposes Prometheus instruments for the price tracker.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the tracker
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal          *prometheus.CounterVec // labels: outcome
	CycleDuration        prometheus.Histogram
	SourceFetches        *prometheus.CounterVec // labels: source, result
	RateLookups          *prometheus.CounterVec // labels: result=cached|live|stale|default
	SnapshotWriteErrors  prometheus.Counter
	AlertsTriggered      prometheus.Counter
	NotificationFailures prometheus.Counter
	LatestPrice          *prometheus.GaugeVec // labels: currency
}

// New registers and returns all metrics on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_cycles_total",
			Help: "Acquisition cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "goldprice_cycle_duration_seconds",
			Help:    "Wall time of one acquisition cycle",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_source_fetches_total",
			Help: "Price source calls by source and result",
		}, []string{"source", "result"}),
		RateLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldprice_exchange_rate_lookups_total",
			Help: "Exchange rate lookups by how they were served",
		}, []string{"result"}),
		SnapshotWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goldprice_snapshot_write_errors_total",
			Help: "Failed price snapshot inserts",
		}),
		AlertsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goldprice_alerts_triggered_total",
			Help: "Alerts that transitioned to triggered",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goldprice_notification_failures_total",
			Help: "Push notifications that could not be delivered",
		}),
		LatestPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goldprice_latest_price",
			Help: "Most recently published price per gram",
		}, []string{"currency"}),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.SourceFetches,
		m.RateLookups,
		m.SnapshotWriteErrors,
		m.AlertsTriggered,
		m.NotificationFailures,
		m.LatestPrice,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CycleFinished counts one acquisition cycle by outcome and records its duration
func (m *Metrics) CycleFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// SourceResult counts a price source call as ok or error
func (m *Metrics) SourceResult(source string, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.SourceFetches.WithLabelValues(source, result).Inc()
}

// RateLookup counts an exchange rate lookup by how it was served:
// cached, live, stale, default, or unknown when no rate was available.
func (m *Metrics) RateLookup(result string) {
	if m == nil {
		return
	}
	m.RateLookups.WithLabelValues(result).Inc()
}

// SnapshotWriteFailed counts a failed snapshot insert
func (m *Metrics) SnapshotWriteFailed() {
	if m == nil {
		return
	}
	m.SnapshotWriteErrors.Inc()
}

// AlertTriggered counts an alert won by this process
func (m *Metrics) AlertTriggered() {
	if m == nil {
		return
	}
	m.AlertsTriggered.Inc()
}

// NotificationFailed counts a push that could not be delivered
func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

// PricePublished sets the latest price gauge for a currency
func (m *Metrics) PricePublished(currency string, price float64) {
	if m == nil {
		return
	}
	m.LatestPrice.WithLabelValues(currency).Set(price)
}

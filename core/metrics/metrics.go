// Package metrics exposes reconciliation counters on a Prometheus registry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"asset-tracker/core/tracking"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "asset_tracker"

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	results   *prometheus.CounterVec
	attempts  prometheus.Histogram
	latency   prometheus.Histogram
	inflight  prometheus.Gauge
	rejected  *prometheus.CounterVec
	reconnect *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Reconciliation results by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_attempts",
			Help:      "Compare-and-commit attempts per reconciled event.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time from dispatch to result.",
			Buckets:   prometheus.DefBuckets,
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_inflight",
			Help:      "Accepted events that have not produced a result yet.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Events rejected before reconciliation.",
		}, []string{"reason"}),
		reconnect: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_reconnects_total",
			Help:      "Event source restarts after a failure.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.results, m.attempts, m.latency, m.inflight, m.rejected, m.reconnect,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Notify records a result. It satisfies the dispatcher's result sink.
func (m *Metrics) Notify(_ context.Context, res tracking.Result) {
	m.results.WithLabelValues(string(res.Outcome)).Inc()
	if res.Attempts > 0 {
		m.attempts.Observe(float64(res.Attempts))
	}
}

// Accepted marks an event as in flight.
func (m *Metrics) Accepted() {
	m.inflight.Inc()
}

// Done marks an accepted event as finished after d.
func (m *Metrics) Done(d time.Duration) {
	m.inflight.Dec()
	m.latency.Observe(d.Seconds())
}

// Rejected counts an event refused before reconciliation.
func (m *Metrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// Reconnected counts a source restart.
func (m *Metrics) Reconnected(source string) {
	m.reconnect.WithLabelValues(source).Inc()
}

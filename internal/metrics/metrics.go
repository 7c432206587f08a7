// Package metrics exposes run instrumentation as prometheus collectors. All
// methods are nil-safe so instrumentation stays optional in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's prometheus collectors on an isolated registry,
// so parallel test runs never fight over the default global one.
type Metrics struct {
	registry *prometheus.Registry

	artifactOutcomes *prometheus.CounterVec
	retries          prometheus.Counter
	groups           *prometheus.CounterVec
	inFlight         prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		artifactOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convoy_artifact_outcomes_total",
			Help: "Terminal artifact outcomes by status.",
		}, []string{"status"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "convoy_retries_total",
			Help: "Retry attempts performed after transient failures.",
		}),
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "convoy_groups_total",
			Help: "Terminal group outcomes by status.",
		}, []string{"status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "convoy_inflight_operations",
			Help: "Build/publish operations currently in flight.",
		}),
	}
	m.registry.MustRegister(m.artifactOutcomes, m.retries, m.groups, m.inFlight)
	return m
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ArtifactOutcome counts one terminal artifact status.
func (m *Metrics) ArtifactOutcome(status string) {
	if m == nil {
		return
	}
	m.artifactOutcomes.WithLabelValues(status).Inc()
}

// Retry counts one retry attempt.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// GroupOutcome counts one terminal group status.
func (m *Metrics) GroupOutcome(status string) {
	if m == nil {
		return
	}
	m.groups.WithLabelValues(status).Inc()
}

// OperationStarted tracks an operation entering flight.
func (m *Metrics) OperationStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// OperationFinished tracks an operation leaving flight.
func (m *Metrics) OperationFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// Package metrics provides Prometheus metrics for the Lumora API client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the client.
type Metrics struct {
	CallsTotal      *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RecoveriesTotal *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumora_client_calls_total",
				Help: "Total logical calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumora_client_attempts_total",
				Help: "Total transport attempts by operation.",
			},
			[]string{"operation"},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumora_client_retries_total",
				Help: "Total retries by canonical error kind.",
			},
			[]string{"kind"},
		),
		RecoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumora_client_recoveries_total",
				Help: "Calls that succeeded after at least one retry, by operation.",
			},
			[]string{"operation"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lumora_client_errors_total",
				Help: "Terminal call failures by canonical kind and family.",
			},
			[]string{"kind", "family"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lumora_client_call_duration_seconds",
				Help:    "Logical call duration by operation, retries included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		registry: reg,
	}

	reg.MustRegister(m.CallsTotal)
	reg.MustRegister(m.AttemptsTotal)
	reg.MustRegister(m.RetriesTotal)
	reg.MustRegister(m.RecoveriesTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(m.CallDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCall increments the logical-call counter.
func (m *Metrics) RecordCall(operation, outcome string) {
	m.CallsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAttempt increments the attempt counter.
func (m *Metrics) RecordAttempt(operation string) {
	m.AttemptsTotal.WithLabelValues(operation).Inc()
}

// RecordRetry increments the retry counter.
func (m *Metrics) RecordRetry(kind string) {
	m.RetriesTotal.WithLabelValues(kind).Inc()
}

// RecordRecovery increments the recovered-after-retry counter.
func (m *Metrics) RecordRecovery(operation string) {
	m.RecoveriesTotal.WithLabelValues(operation).Inc()
}

// RecordError increments the terminal-failure counter.
func (m *Metrics) RecordError(kind, family string) {
	m.ErrorsTotal.WithLabelValues(kind, family).Inc()
}

// ObserveCallDuration records a logical call's duration.
func (m *Metrics) ObserveCallDuration(operation string, seconds float64) {
	m.CallDuration.WithLabelValues(operation).Observe(seconds)
}

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors.
type Metrics struct {
	evaluations *prometheus.CounterVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var (
	once     sync.Once
	registry *Metrics
)

// New builds unregistered collectors.
func New() *Metrics {
	return &Metrics{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lamf",
			Subsystem: "eligibility",
			Name:      "evaluations_total",
			Help:      "Eligibility evaluations segmented by source and outcome.",
		}, []string{"source", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lamf",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests segmented by method, route and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lamf",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for HTTP handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Default returns the collectors registered with the default registry.
func Default() *Metrics {
	once.Do(func() {
		registry = New()
		prometheus.MustRegister(registry.evaluations, registry.requests, registry.latency)
	})
	return registry
}

// ObserveEvaluation records one calculator run. outcome is "accepted" or the
// rejection kind.
func (m *Metrics) ObserveEvaluation(source, outcome string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(source, outcome).Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// EvaluationCount is used by tests.
func (m *Metrics) EvaluationCount(source, outcome string) prometheus.Counter {
	return m.evaluations.WithLabelValues(source, outcome)
}

// RequestCount is used by tests.
func (m *Metrics) RequestCount(method, route string, status int) prometheus.Counter {
	return m.requests.WithLabelValues(method, route, strconv.Itoa(status))
}

// Package metrics exposes Prometheus counters for the triage pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the triage engine's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TriageTotal *prometheus.CounterVec

	InferenceCalls    prometheus.Counter
	InferenceErrors   *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	CircuitState      prometheus.Gauge

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheErrorsTotal prometheus.Counter

	CommandsTotal *prometheus.CounterVec
}

// New registers the collectors with the default registry once and returns
// the shared instance.
//
// Metrics:
//   - oaiguard_triage_total{source}
//   - oaiguard_inference_calls_total
//   - oaiguard_inference_errors_total{kind}
//   - oaiguard_inference_duration_seconds
//   - oaiguard_inference_circuit_state (0 closed, 1 open, 2 half-open)
//   - oaiguard_cache_hits_total / oaiguard_cache_misses_total / oaiguard_cache_errors_total
//   - oaiguard_commands_total{kind,result}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TriageTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "oaiguard_triage_total",
					Help: "Total number of triaged error events by diagnosis source",
				},
				[]string{"source"},
			),
			InferenceCalls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "oaiguard_inference_calls_total",
				Help: "Total number of inference requests issued",
			}),
			InferenceErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "oaiguard_inference_errors_total",
					Help: "Inference failures by kind",
				},
				[]string{"kind"}, // "transport" or "unparseable"
			),
			InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "oaiguard_inference_duration_seconds",
				Help:    "Latency of inference requests",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			}),
			CircuitState: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "oaiguard_inference_circuit_state",
				Help: "Inference circuit breaker state (0 closed, 1 open, 2 half-open)",
			}),
			CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "oaiguard_cache_hits_total",
				Help: "History cache hits",
			}),
			CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "oaiguard_cache_misses_total",
				Help: "History cache misses",
			}),
			CacheErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "oaiguard_cache_errors_total",
				Help: "History cache read or write failures",
			}),
			CommandsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "oaiguard_commands_total",
					Help: "Executed or refused commands",
				},
				[]string{"kind", "result"}, // kind: diagnostic|fix, result: ok|failed|skipped
			),
		}
	})
	return globalMetrics
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordTriage(source string) {
	if m == nil {
		return
	}
	m.TriageTotal.WithLabelValues(source).Inc()
}

// RecordInference observes one inference call. kind is empty on success.
func (m *Metrics) RecordInference(d time.Duration, kind string) {
	if m == nil {
		return
	}
	m.InferenceCalls.Inc()
	m.InferenceDuration.Observe(d.Seconds())
	if kind != "" {
		m.InferenceErrors.WithLabelValues(kind).Inc()
	}
}

// RecordInferenceFailure counts a reply that could not be used without
// counting another call.
func (m *Metrics) RecordInferenceFailure(kind string) {
	if m != nil {
		m.InferenceErrors.WithLabelValues(kind).Inc()
	}
}

// RecordCircuitState sets the breaker gauge.
func (m *Metrics) RecordCircuitState(state int) {
	if m != nil {
		m.CircuitState.Set(float64(state))
	}
}

func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheHitsTotal.Inc()
	}
}

func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) RecordCacheError() {
	if m != nil {
		m.CacheErrorsTotal.Inc()
	}
}

// RecordCommand counts a command outcome.
func (m *Metrics) RecordCommand(kind string, rc int, skipped bool) {
	if m == nil {
		return
	}
	result := "ok"
	switch {
	case skipped:
		result = "skipped"
	case rc != 0:
		result = "failed"
	}
	m.CommandsTotal.WithLabelValues(kind, result).Inc()
}

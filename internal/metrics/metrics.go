// Package metrics exposes Prometheus instrumentation for the discovery pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider records pipeline-level counters. A no-op implementation backs disabled
// deployments so call sites never branch on configuration.
type Provider interface {
	IncAPICall(operation string)
	IncCredentialRotation(operation string)
	IncQuotaExhausted(operation string)
	IncUpserted(entity string, count int)
	ObserveRunDuration(strategy string, duration time.Duration)
}

type promMetrics struct {
	apiCalls       *prometheus.CounterVec
	keyRotations   *prometheus.CounterVec
	quotaExhausted *prometheus.CounterVec
	upserted       *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
}

// NewProvider builds the Prometheus-backed provider, or a no-op one when disabled.
func NewProvider(enabled bool) Provider {
	if !enabled {
		return Noop()
	}

	return &promMetrics{
		apiCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shortsradar_youtube_api_calls_total",
			Help: "Total number of completed YouTube API operations",
		}, []string{"operation"}),

		keyRotations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shortsradar_youtube_key_rotations_total",
			Help: "Total number of credential rotations caused by quota-class failures",
		}, []string{"operation"}),

		quotaExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shortsradar_youtube_quota_exhausted_total",
			Help: "Total number of operations that exhausted every configured API key",
		}, []string{"operation"}),

		upserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shortsradar_rows_upserted_total",
			Help: "Total number of rows written by the ingestion store",
		}, []string{"entity"}),

		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shortsradar_discovery_run_duration_seconds",
			Help:    "Wall-clock duration of discovery runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"strategy"}),
	}
}

func (m *promMetrics) IncAPICall(operation string) {
	m.apiCalls.WithLabelValues(operation).Inc()
}

func (m *promMetrics) IncCredentialRotation(operation string) {
	m.keyRotations.WithLabelValues(operation).Inc()
}

func (m *promMetrics) IncQuotaExhausted(operation string) {
	m.quotaExhausted.WithLabelValues(operation).Inc()
}

func (m *promMetrics) IncUpserted(entity string, count int) {
	m.upserted.WithLabelValues(entity).Add(float64(count))
}

func (m *promMetrics) ObserveRunDuration(strategy string, duration time.Duration) {
	m.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// Noop returns the no-op provider.
func Noop() Provider {
	return noopMetrics{}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (noopMetrics) IncAPICall(_ string)                          {}
func (noopMetrics) IncCredentialRotation(_ string)               {}
func (noopMetrics) IncQuotaExhausted(_ string)                   {}
func (noopMetrics) IncUpserted(_ string, _ int)                  {}
func (noopMetrics) ObserveRunDuration(_ string, _ time.Duration) {}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pictora-hq/relay/pkg/config"
)

// UpstreamMetrics tracks calls to image hosts, generation providers, and PayPal.
//
// Metrics:
//   - pictora_relay_upstream_requests_total: attempts by provider and outcome
//   - pictora_relay_upstream_request_duration_seconds: attempt latency
//   - pictora_relay_upstream_retries_total: retries scheduled by provider
type UpstreamMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream request attempts",
			},
			[]string{"provider", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of upstream request attempts in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_retries_total",
				Help:      "Total number of upstream retries",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(um.requestsTotal, um.requestDuration, um.retriesTotal)
	return um
}

// RecordRequest records one upstream attempt.
func (um *UpstreamMetrics) RecordRequest(provider, outcome string, duration time.Duration) {
	um.requestsTotal.WithLabelValues(provider, outcome).Inc()
	um.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRetry records a scheduled retry.
func (um *UpstreamMetrics) RecordRetry(provider string) {
	um.retriesTotal.WithLabelValues(provider).Inc()
}

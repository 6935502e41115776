package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"pictora-hq/relay/pkg/config"
)

// CacheMetrics tracks the image cache.
//
// Metrics:
//   - pictora_relay_cache_hits_total
//   - pictora_relay_cache_misses_total
//   - pictora_relay_cache_entries
//   - pictora_relay_cache_evictions_total{reason="expired|capacity"}
//
// Hit rate:
//
//	rate(pictora_relay_cache_hits_total[5m]) /
//	(rate(pictora_relay_cache_hits_total[5m]) + rate(pictora_relay_cache_misses_total[5m]))
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	entries        *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in cache",
			},
			[]string{"cache"},
		),

		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"cache", "reason"},
		),
	}

	registry.MustRegister(cm.hitsTotal, cm.missesTotal, cm.entries, cm.evictionsTotal)
	return cm
}

// RecordHit records a cache hit.
func (cm *CacheMetrics) RecordHit(cacheName string) {
	cm.hitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordMiss records a cache miss.
func (cm *CacheMetrics) RecordMiss(cacheName string) {
	cm.missesTotal.WithLabelValues(cacheName).Inc()
}

// UpdateSize updates the current size of a cache.
func (cm *CacheMetrics) UpdateSize(cacheName string, size int) {
	cm.entries.WithLabelValues(cacheName).Set(float64(size))
}

// RecordEviction records n entries removed for reason.
func (cm *CacheMetrics) RecordEviction(cacheName, reason string, n int) {
	if n > 0 {
		cm.evictionsTotal.WithLabelValues(cacheName, reason).Add(float64(n))
	}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pictora-hq/relay/pkg/config"
)

// Collector owns the relay's Prometheus registry and every metric family.
//
// It satisfies cache.Observer and upstream.Recorder, so the image cache and
// the upstream clients report into it without importing this package.
// When metrics are disabled every Record method is a no-op.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	upstreamMetrics *UpstreamMetrics
	cacheMetrics    *CacheMetrics
	paymentMetrics  *PaymentMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a fresh one is created, with the Go runtime and process
// collectors attached.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		requestMetrics:  NewRequestMetrics(cfg, registry),
		upstreamMetrics: NewUpstreamMetrics(cfg, registry),
		cacheMetrics:    NewCacheMetrics(cfg, registry),
		paymentMetrics:  NewPaymentMetrics(cfg, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metrics are recorded.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// RecordHTTPRequest records a completed inbound request.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(route, method, strconv.Itoa(status), duration)
}

// UpstreamRequest implements upstream.Recorder.
func (c *Collector) UpstreamRequest(provider, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.upstreamMetrics.RecordRequest(provider, outcome, duration)
}

// UpstreamRetry implements upstream.Recorder.
func (c *Collector) UpstreamRetry(provider string) {
	if !c.config.Enabled {
		return
	}
	c.upstreamMetrics.RecordRetry(provider)
}

// CacheHit implements cache.Observer.
func (c *Collector) CacheHit(cache string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordHit(cache)
}

// CacheMiss implements cache.Observer.
func (c *Collector) CacheMiss(cache string) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordMiss(cache)
}

// CacheEviction implements cache.Observer.
func (c *Collector) CacheEviction(cache, reason string, n int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.RecordEviction(cache, reason, n)
}

// CacheSize implements cache.Observer.
func (c *Collector) CacheSize(cache string, n int) {
	if !c.config.Enabled {
		return
	}
	c.cacheMetrics.UpdateSize(cache, n)
}

// RecordPayment records the result of a PayPal operation
// ("create", "capture", "status") and the order status it produced.
func (c *Collector) RecordPayment(operation, status string) {
	if !c.config.Enabled {
		return
	}
	c.paymentMetrics.RecordOperation(operation, status)
}

// Package metrics exposes the relay's Prometheus metrics.
//
// A Collector owns a registry with four families of metrics: inbound HTTP
// requests (per route), upstream attempts and retries (per provider), the
// image cache (hits, misses, entries, evictions by reason), and PayPal
// order operations.
//
// Usage:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	imageCache := cache.New(cache.Options{Observer: collector})
//	client := upstream.New(upstream.Config{Provider: "image", Recorder: collector})
//	mux.Handle("/api/generate", collector.Instrument("/api/generate", h))
//	mux.Handle("/metrics", collector.Handler())
package metrics

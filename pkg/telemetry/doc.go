// Package telemetry groups the relay's observability packages.
//
// # Components
//
//   - logging: log/slog setup with secret redaction and request-scoped
//     fields (request_id, trace_id)
//   - metrics: Prometheus collectors for inbound requests, upstream calls,
//     the image cache and PayPal operations, served at /metrics
//   - tracing: OpenTelemetry spans around upstream calls, exported over
//     OTLP gRPC when enabled
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	lv := new(slog.LevelVar)
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stdout, lv))
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle("/api/generate", collector.Instrument("/api/generate", handler))
//	mux.Handle("/metrics", collector.Handler())
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
// The metric names use the namespace "pictora" and the subsystem "relay",
// for example pictora_relay_http_requests_total.
package telemetry

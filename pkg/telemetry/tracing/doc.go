// Package tracing wires OpenTelemetry tracing into the relay.
//
// New installs an OTLP gRPC exporter and a parent-based sampler as the
// global tracer provider. When tracing is disabled it returns a noop
// tracer, and spans started through otel.Tracer cost next to nothing.
//
// HTTPMiddleware extracts W3C trace context from incoming requests and
// opens a server span; the upstream client opens a client span per call
// and injects the context into outbound headers.
//
// Configuration:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: "otel-collector:4317"
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    service_name: pictora-relay
//
// Only the host of an upstream URL is recorded on spans.
package tracing

// Package upstream is the outbound HTTP client shared by the image proxy,
// the generation providers, and the PayPal integration.
//
// Every call gets a per-attempt timeout, a User-Agent, a bounded body read,
// an OpenTelemetry client span, and per-attempt metrics through Recorder.
//
// Only FetchImage retries. It retries transport failures, 408, 429, and 5xx
// responses with jittered exponential backoff from
// github.com/cenkalti/backoff/v5, honoring Retry-After up to
// DefaultMaxRetryAfter. Do never retries: generation and payment capture
// are not idempotent.
//
// Failures are reported as *Error (with the upstream status when one was
// received) or *TimeoutError.
package upstream

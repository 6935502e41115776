package tracing

import (
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow OpenTelemetry semantic conventions;
// relay-specific keys live under "relay.*".
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPRoute      = "http.route"
	AttrServerAddress  = "server.address"

	AttrProvider   = "relay.provider"
	AttrModel      = "relay.model"
	AttrRequestID  = "relay.request_id"
	AttrRetryCount = "relay.retry_count"
	AttrCacheHit   = "relay.cache.hit"
	AttrOrderID    = "relay.payment.order_id"

	AttrErrorType    = "relay.error.type"
	AttrErrorMessage = "error.message"
)

// SetUpstreamAttributes records the provider, method, and target host of an
// outbound call. Only the host is recorded, never the full URL, because
// image URLs and PayPal paths can carry identifiers.
func SetUpstreamAttributes(span trace.Span, provider, method, rawURL string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrProvider, provider),
		attribute.String(AttrHTTPMethod, method),
	}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		attrs = append(attrs, attribute.String(AttrServerAddress, u.Host))
	}
	span.SetAttributes(attrs...)
}

// SetModelAttribute records the generation model.
func SetModelAttribute(span trace.Span, model string) {
	if model != "" {
		span.SetAttributes(attribute.String(AttrModel, model))
	}
}

// SetHTTPStatus records a response status code.
func SetHTTPStatus(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, statusCode))
}

// SetRetryAttribute records how many retries an operation needed.
func SetRetryAttribute(span trace.Span, retryCount int) {
	if retryCount > 0 {
		span.SetAttributes(attribute.Int(AttrRetryCount, retryCount))
	}
}

// SetCacheAttribute records whether a request was served from cache.
func SetCacheAttribute(span trace.Span, hit bool) {
	span.SetAttributes(attribute.Bool(AttrCacheHit, hit))
}

// SetErrorType records the classified error type of a failed request.
func SetErrorType(span trace.Span, errorType string) {
	if errorType != "" {
		span.SetAttributes(attribute.String(AttrErrorType, errorType))
	}
}

// SetOrderAttribute records the PayPal order ID.
func SetOrderAttribute(span trace.Span, orderID string) {
	if orderID != "" {
		span.SetAttributes(attribute.String(AttrOrderID, orderID))
	}
}

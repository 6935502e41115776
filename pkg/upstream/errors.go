package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrInvalidURL is returned when a target URL cannot be requested.
	ErrInvalidURL = errors.New("invalid upstream url")

	// ErrBodyTooLarge is wrapped when a response exceeds the body limit.
	ErrBodyTooLarge = errors.New("upstream response too large")
)

// Error represents a failed upstream call: either a non-2xx response
// (StatusCode > 0) or a transport failure (StatusCode == 0, Cause set).
type Error struct {
	// Provider labels the upstream (e.g., "image", "bigmodel", "paypal").
	Provider string

	// StatusCode is the HTTP status returned by the upstream (0 if none).
	StatusCode int

	// Message is a short description of the failure.
	Message string

	// Body is the response body, when there was one.
	Body []byte

	// RetryAfter is the parsed Retry-After header of the response (0 if absent).
	RetryAfter time.Duration

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("upstream %q error: %s: %v", e.Provider, e.Message, e.Cause)
	default:
		return fmt.Sprintf("upstream %q error: %s", e.Provider, e.Message)
	}
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// TimeoutError reports that an upstream call exceeded its deadline.
type TimeoutError struct {
	// Provider labels the upstream.
	Provider string

	// Timeout is the configured per-attempt timeout.
	Timeout time.Duration

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream %q request timeout after %s", e.Provider, e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is, or wraps, an upstream timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}

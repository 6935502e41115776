package upstream

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// retryAfterBackOff stretches the next exponential interval to a
// server-provided Retry-After hint, capped at max.
type retryAfterBackOff struct {
	backoff.BackOff
	max     time.Duration
	pending time.Duration
}

func (b *retryAfterBackOff) observe(d time.Duration) {
	if d <= 0 {
		return
	}
	if d > b.max {
		d = b.max
	}
	b.pending = d
}

// NextBackOff returns the larger of the exponential interval and the
// pending Retry-After hint.
func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next != backoff.Stop && b.pending > next {
		next = b.pending
	}
	b.pending = 0
	return next
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"pictora-hq/relay/pkg/telemetry/tracing"
)

// Default client settings.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxBodyBytes   = int64(20 << 20)
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 2 * time.Second
	DefaultMaxRetryAfter  = 5 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (compatible; PictoraImageProxy/1.0)"
)

// Outcome labels passed to Recorder.
const (
	OutcomeSuccess   = "success"
	OutcomeStatus    = "error_status"
	OutcomeTransport = "transport_error"
	OutcomeTimeout   = "timeout"
)

// Recorder receives per-attempt upstream metrics.
type Recorder interface {
	UpstreamRequest(provider, outcome string, duration time.Duration)
	UpstreamRetry(provider string)
}

// Config configures a Client.
type Config struct {
	// Provider labels requests in logs, metrics, spans, and errors.
	Provider string

	// Timeout bounds each attempt.
	Timeout time.Duration

	// UserAgent is sent on every request that does not set its own.
	UserAgent string

	// MaxRetries is the number of extra attempts FetchImage makes after a
	// retryable failure. Zero or negative disables retries.
	MaxRetries int

	// InitialBackoff and MaxBackoff shape the exponential backoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64

	// Transport overrides the pooled default transport (used in tests).
	Transport http.RoundTripper

	// Recorder receives metrics. Optional.
	Recorder Recorder

	// Logger for retry and failure logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client issues requests to third-party APIs.
//
// FetchImage is the only operation that retries, because it is an
// idempotent GET. Do is strictly single-attempt and is what generation and
// payment calls go through.
type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
	logger *slog.Logger
}

// Image is a fetched image payload.
type Image struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Response is a fully read upstream response of any status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// New creates a client with a pooled transport.
func New(cfg Config) *Client {
	if cfg.Provider == "" {
		cfg.Provider = "upstream"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	return &Client{
		cfg: cfg,
		// Per-attempt deadlines come from the request context
		http:   &http.Client{Transport: transport},
		tracer: otel.Tracer("pictora-hq/relay/upstream"),
		logger: cfg.Logger.With("component", "upstream", "provider", cfg.Provider),
	}
}

// Provider returns the client's provider label.
func (c *Client) Provider() string {
	return c.cfg.Provider
}

// FetchImage GETs rawURL, retrying transport failures, 408, 429, and 5xx
// responses with jittered exponential backoff. Retry-After is honored up
// to a small cap.
func (c *Client) FetchImage(ctx context.Context, rawURL string) (*Image, error) {
	return c.fetch(ctx, rawURL, c.cfg.MaxRetries)
}

// Get is FetchImage without retries. It is used where the caller must
// relay the first upstream status verbatim.
func (c *Client) Get(ctx context.Context, rawURL string) (*Image, error) {
	return c.fetch(ctx, rawURL, 0)
}

func (c *Client) fetch(ctx context.Context, rawURL string, retries int) (*Image, error) {
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "upstream.fetch_image", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	tracing.SetUpstreamAttributes(span, c.cfg.Provider, http.MethodGet, rawURL)

	hint := &retryAfterBackOff{max: DefaultMaxRetryAfter}
	attempt := 0

	operation := func() (*Image, error) {
		attempt++
		img, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			return img, nil
		}
		if !retryable(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		var ue *Error
		if errors.As(err, &ue) {
			hint.observe(ue.RetryAfter)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.RandomizationFactor = 0.5
	hint.BackOff = b

	maxTries := uint(1)
	if retries > 0 {
		maxTries += uint(retries)
	}

	img, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(hint),
		backoff.WithMaxTries(maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if c.cfg.Recorder != nil {
				c.cfg.Recorder.UpstreamRetry(c.cfg.Provider)
			}
			c.logger.Warn("image fetch failed, will retry",
				"attempt", attempt,
				"backoff", wait,
				"error", err,
			)
		}),
	)
	tracing.SetRetryAttribute(span, attempt-1)
	tracing.SetStatus(span, err)
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}
	return img, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (*Image, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "image/*")
	tracing.Inject(ctx, req.Header)

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return nil, &Error{
			Provider:   c.cfg.Provider,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       resp.Body,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return &Image{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// Do sends req exactly once and returns the fully read response whatever
// its status. An error is returned only when no response was received or
// the body could not be read. The per-call timeout is applied on top of
// the request's own context.
func (c *Client) Do(req *http.Request) (*Response, error) {
	ctx, span := c.tracer.Start(req.Context(), "upstream."+c.cfg.Provider, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	tracing.SetUpstreamAttributes(span, c.cfg.Provider, req.Method, req.URL.String())

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := c.send(req)
	if err != nil {
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		return nil, err
	}
	tracing.SetHTTPStatus(span, resp.StatusCode)
	return resp, nil
}

// send performs one round trip and classifies transport failures.
func (c *Client) send(req *http.Request) (*Response, error) {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		outcome := OutcomeTransport
		var out error = &Error{Provider: c.cfg.Provider, Message: "request failed", Cause: err}
		if IsTimeout(err) {
			outcome = OutcomeTimeout
			out = &TimeoutError{Provider: c.cfg.Provider, Timeout: c.cfg.Timeout, Cause: err}
		}
		c.record(outcome, start)
		c.logger.Debug("upstream request failed", "method", req.Method, "host", req.URL.Host, "error", err)
		return nil, out
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		outcome := OutcomeTransport
		var out error = &Error{Provider: c.cfg.Provider, Message: "failed to read response body", Cause: err}
		if IsTimeout(err) {
			outcome = OutcomeTimeout
			out = &TimeoutError{Provider: c.cfg.Provider, Timeout: c.cfg.Timeout, Cause: err}
		}
		c.record(outcome, start)
		return nil, out
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		c.record(OutcomeStatus, start)
		return nil, &Error{
			Provider: c.cfg.Provider,
			Message:  fmt.Sprintf("response body exceeds %d bytes", c.cfg.MaxBodyBytes),
			Cause:    ErrBodyTooLarge,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.record(OutcomeSuccess, start)
	} else {
		c.record(OutcomeStatus, start)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) record(outcome string, start time.Time) {
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.UpstreamRequest(c.cfg.Provider, outcome, time.Since(start))
	}
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// retryable decides whether a failed attempt should be retried. A
// cancelled or expired parent context is never retried.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrBodyTooLarge) {
		return false
	}

	var ue *Error
	if errors.As(err, &ue) && ue.StatusCode > 0 {
		s := ue.StatusCode
		return s == http.StatusRequestTimeout || s == http.StatusTooManyRequests || s >= 500
	}

	// Transport failures and per-attempt timeouts
	return true
}

func checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

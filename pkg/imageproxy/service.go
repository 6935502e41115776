package imageproxy

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"pictora-hq/relay/pkg/cache"
	"pictora-hq/relay/pkg/telemetry/tracing"
	"pictora-hq/relay/pkg/upstream"
)

// DefaultFetchDeadline bounds a shared display fetch, retries included.
const DefaultFetchDeadline = 30 * time.Second

// Service serves images from the cache and fills it from the upstream.
type Service struct {
	cache    *cache.Cache
	client   *upstream.Client
	group    singleflight.Group
	deadline time.Duration
	logger   *slog.Logger
}

// NewService creates a Service. A zero deadline means DefaultFetchDeadline.
func NewService(c *cache.Cache, client *upstream.Client, deadline time.Duration, logger *slog.Logger) *Service {
	if deadline <= 0 {
		deadline = DefaultFetchDeadline
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:    c,
		client:   client,
		deadline: deadline,
		logger:   logger.With("component", "imageproxy"),
	}
}

// Get returns the image for rawURL and whether it came from the cache.
//
// Concurrent misses for one URL share a single upstream fetch. The shared
// fetch is detached from the caller's cancellation so that one client going
// away does not fail the others; a caller whose context ends stops waiting
// and gets its context error.
func (s *Service) Get(ctx context.Context, rawURL string) (cache.Entry, bool, error) {
	span := tracing.SpanFromContext(ctx)

	if e, ok := s.cache.Get(rawURL); ok {
		tracing.SetCacheAttribute(span, true)
		return e, true, nil
	}
	tracing.SetCacheAttribute(span, false)

	ch := s.group.DoChan(rawURL, func() (any, error) {
		// Another flight may have filled the entry since our lookup
		if e, ok := s.cache.Peek(rawURL); ok {
			return e, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deadline)
		defer cancel()

		img, err := s.client.FetchImage(fetchCtx, rawURL)
		if err != nil {
			return nil, err
		}

		return s.cache.Set(rawURL, img.Body, img.ContentType), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return cache.Entry{}, false, res.Err
		}
		if res.Shared {
			s.logger.DebugContext(ctx, "shared in-flight image fetch")
		}
		return res.Val.(cache.Entry), false, nil
	case <-ctx.Done():
		return cache.Entry{}, false, ctx.Err()
	}
}

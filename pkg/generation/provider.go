package generation

import (
	"context"
	"log/slog"
	"time"

	"pictora-hq/relay/pkg/journal"
)

// Journal records completed relays. *journal.Recorder implements it.
type Journal interface {
	Record(ctx context.Context, rec journal.Record)
}

// Options are shared by the generation handlers.
type Options struct {
	// Timeout bounds the whole handler, including the upstream call.
	// Zero means no handler-level deadline beyond the client's.
	Timeout time.Duration

	// Journal receives one record per relayed call. Optional.
	Journal Journal

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger(provider string) *slog.Logger {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", "generation", "provider", provider)
}

// withTimeout applies the handler timeout when one is configured.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

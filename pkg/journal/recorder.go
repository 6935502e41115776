package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pictora-hq/relay/pkg/telemetry/logging"
)

// Recorder defaults.
const (
	DefaultBuffer       = 256
	DefaultWriteTimeout = 5 * time.Second
)

// Recorder writes records to a Store on a background goroutine so that
// journaling never delays or fails a relay. Records are dropped, with a
// warning, when the buffer is full.
type Recorder struct {
	store        Store
	ch           chan Record
	writeTimeout time.Duration
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder starts a recorder over store. A buffer of 0 means DefaultBuffer.
func NewRecorder(store Store, buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:        store,
		ch:           make(chan Record, buffer),
		writeTimeout: DefaultWriteTimeout,
		logger:       logger.With("component", "journal.recorder"),
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues rec. The request ID is taken from ctx when rec has none.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.RequestID == "" {
		rec.RequestID = logging.GetRequestID(ctx)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.ch <- rec:
	default:
		r.logger.WarnContext(ctx, "journal buffer full, dropping record",
			"kind", rec.Kind,
			"provider", rec.Provider,
		)
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for rec := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		if err := r.store.Record(ctx, rec); err != nil {
			r.logger.Error("failed to write journal record",
				"id", rec.ID,
				"kind", rec.Kind,
				"error", err,
			)
		}
		cancel()
	}
}

// Close stops accepting records and waits for queued ones to be written.
// It does not close the store.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	r.wg.Wait()
}

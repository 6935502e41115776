package journal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pictora-hq/relay/pkg/proxy"
)

// Record kinds.
const (
	KindGeneration = "generation"
	KindPayment    = "payment"
)

// Record statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one relayed generation or payment call. It never holds image
// bytes, prompts, or payer details.
type Record struct {
	ID         string
	RequestID  string
	Kind       string
	Provider   string
	Reference  string // model name or PayPal order ID
	Status     string
	HTTPStatus int
	Error      string
	DurationMs int64
	CreatedAt  time.Time
}

// NewRecord builds a record for a call that started at start and ended
// with err. HTTPStatus is the status the client was answered with.
func NewRecord(kind, provider, reference string, start time.Time, err error) Record {
	rec := Record{
		ID:         uuid.NewString(),
		Kind:       kind,
		Provider:   provider,
		Reference:  reference,
		Status:     StatusSuccess,
		HTTPStatus: http.StatusOK,
		DurationMs: time.Since(start).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err != nil {
		status, body := proxy.HandleError(err, "")
		rec.Status = StatusFailed
		rec.HTTPStatus = status
		rec.Error = body.Error
		if body.Details != "" {
			rec.Error += ": " + body.Details
		}
	}
	return rec
}

// Store persists journal records.
type Store interface {
	// Record persists rec.
	Record(ctx context.Context, rec Record) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Prune deletes records created before the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "memory", "sqlite", "postgres"
	Operation string // "open", "record", "recent", "prune"
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("journal storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the most recent records in a fixed-size ring.
type MemoryStore struct {
	mu    sync.Mutex
	ring  []Record
	next  int
	count int
}

// NewMemoryStore creates a ring holding capacity records (at least 1).
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryStore{ring: make([]Record, capacity)}
}

// Record implements Store. The oldest record is overwritten when full.
func (s *MemoryStore) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = rec
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out, nil
}

// Prune implements Store.
func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Record, 0, s.count)
	for i := s.count; i >= 1; i-- {
		rec := s.ring[(s.next-i+len(s.ring))%len(s.ring)]
		if !rec.CreatedAt.Before(before) {
			kept = append(kept, rec)
		}
	}

	removed := int64(s.count - len(kept))
	clear(s.ring)
	copy(s.ring, kept)
	s.count = len(kept)
	s.next = len(kept) % len(s.ring)
	return removed, nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

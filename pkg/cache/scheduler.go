package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleOff disables the scheduled sweep.
const ScheduleOff = "off"

// Scheduler sweeps a cache on a cron schedule so that expired entries are
// released even when no new entries are being stored.
type Scheduler struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a sweep scheduler for c. Standard cron expressions
// and descriptors such as "@every 5m" are accepted.
func NewScheduler(c *Cache, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cache:    c,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "cache.scheduler", "cache", c.Name()),
	}
}

// Start begins scheduled sweeping. The scheduler stops when ctx is
// cancelled or Stop is called. An empty or "off" schedule is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" || s.schedule == ScheduleOff {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("cache sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunOnce sweeps the cache immediately.
func (s *Scheduler) RunOnce() {
	removed := s.cache.Sweep()
	if removed > 0 {
		s.logger.Debug("cache sweep completed", "removed", removed, "entries", s.cache.Len())
	}
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("cache sweep scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes records older than the retention period on a cron schedule.
type Pruner struct {
	store     Store
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner creates a pruner. A retention of 0 days disables pruning.
func NewPruner(store Store, retentionDays int, schedule string, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		now:       time.Now,
		logger:    logger.With("component", "journal.pruner"),
	}
}

// Start schedules pruning. An empty or "off" schedule, or zero retention,
// leaves the pruner idle.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	if p.schedule == "" || p.schedule == "off" || p.retention <= 0 {
		p.logger.Info("journal pruning disabled")
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.schedule, err)
	}

	c := cron.New()
	if _, err := c.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error("scheduled journal pruning failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	c.Start()
	p.cron = c
	p.running = true

	p.logger.Info("journal pruner started",
		"schedule", p.schedule,
		"retention", p.retention,
	)
	return nil
}

// RunOnce deletes every record older than the retention period.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.retention)

	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("journal pruned", "deleted_count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Stop stops the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("journal pruner stopped")
	}
}

// IsRunning reports whether pruning is scheduled.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// NextRun returns the next scheduled prune, or nil.
func (p *Pruner) NextRun() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron == nil {
		return nil
	}
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

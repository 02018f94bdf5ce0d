package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the pending-sync sweep on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	worker *SyncWorker
	ctx    context.Context
}

// NewScheduler creates a scheduler whose jobs run with ctx. Specs use the
// six-field format with seconds.
func NewScheduler(ctx context.Context, w *SyncWorker) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		worker: w,
		ctx:    ctx,
	}
}

// Register adds the pending-sync sweep.
func (s *Scheduler) Register(syncSpec string) error {
	if _, err := s.cron.AddFunc(syncSpec, s.sweep); err != nil {
		return fmt.Errorf("register sync sweep %q: %w", syncSpec, err)
	}
	return nil
}

func (s *Scheduler) sweep() {
	if s.ctx.Err() != nil {
		return
	}
	n, err := s.worker.ProcessPendingEntries(s.ctx)
	if err != nil {
		slog.ErrorContext(s.ctx, "Pending sync sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(s.ctx, "Pending sync sweep completed", "synced", n)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

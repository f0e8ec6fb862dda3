package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPassInProgress is returned when a pass is requested while another one
// is still running.
var ErrPassInProgress = errors.New("scheduler: pass already in progress")

// Scheduler drives reconciliation passes on a fixed interval. Overlapping
// passes are skipped rather than queued: two passes racing over the same
// rentals could close them differently.
type Scheduler struct {
	interval   time.Duration
	reconciler *Reconciler
	logger     *zap.Logger

	mu sync.Mutex
}

// NewScheduler returns scheduler.
func NewScheduler(interval time.Duration, reconciler *Reconciler, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{interval: interval, reconciler: reconciler, logger: logger}
}

// Run executes a pass immediately, then on every tick until the context is
// cancelled. Cancellation propagates into in-flight telemetry fetches and
// ledger calls; a partially finished pass is safe to abandon since the next
// one re-derives everything from scratch.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// TriggerNow runs a pass outside the schedule, refusing to overlap one that
// is already running.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrPassInProgress
	}
	defer s.mu.Unlock()
	return s.reconciler.RunPass(ctx)
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.mu.TryLock() {
		s.logger.Warn("previous pass still running, skipping tick")
		return
	}
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.reconciler.RunPass(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("reconciliation pass failed", zap.Error(err))
		}
		return
	}
	s.logger.Info("reconciliation pass finished", zap.Duration("took", time.Since(start)))
}

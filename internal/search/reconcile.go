package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TaskRef identifies a task and its owner.
type TaskRef struct {
	TaskID uuid.UUID
	UserID uuid.UUID
}

// DriftSource finds tasks whose index row disagrees with the task store:
// missing, older than the task, or left behind by a deleted task. Only rows
// last changed before settledBefore are reported, so writes whose jobs are
// still in flight are left alone.
type DriftSource interface {
	FindDrift(ctx context.Context, settledBefore time.Time, limit int) ([]TaskRef, error)
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

// Reconciler submits reindex jobs for index drift on a fixed interval.
type Reconciler struct {
	syncer *Syncer
	drift  DriftSource
	config ReconcilerConfig
	clock  func() time.Time
	logger *slog.Logger
}

// NewReconciler creates a Reconciler that submits through syncer.
func NewReconciler(syncer *Syncer, drift DriftSource, config ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if syncer == nil || drift == nil {
		panic("reconciler requires a syncer and a drift source")
	}
	if config.Interval <= 0 {
		config.Interval = 2 * time.Minute
	}
	if config.Grace < 0 {
		config.Grace = 0
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		syncer: syncer,
		drift:  drift,
		config: config,
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "search_reconciler")),
	}
}

// Reconcile runs one pass and returns the number of jobs submitted. A failed
// submission stops the pass; the next pass finds the same drift again.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	refs, err := r.drift.FindDrift(ctx, r.clock().Add(-r.config.Grace), r.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find index drift: %w", err)
	}

	for i, ref := range refs {
		if err := r.syncer.Submit(ctx, ref.TaskID, ref.UserID, "reconcile"); err != nil {
			return i, err
		}
	}

	if len(refs) > 0 {
		r.logger.Info("submitted reindex jobs for index drift", "count", len(refs))
	}
	return len(refs), nil
}

// Run reconciles every Interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("index reconciliation failed", "error", err)
			}
		}
	}
}

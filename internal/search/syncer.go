package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/jobs"
)

// Submitter accepts jobs for background execution.
type Submitter interface {
	Submit(ctx context.Context, job jobs.Job) error
}

// Syncer turns task change events into reindex jobs.
type Syncer struct {
	runner Submitter
	tasks  TaskSource
	index  Index
	locks  TaskLocker
	logger *slog.Logger
}

var _ events.EventHandler = (*Syncer)(nil)

// NewSyncer creates a Syncer that submits jobs to runner.
func NewSyncer(runner Submitter, tasks TaskSource, index Index, locks TaskLocker, logger *slog.Logger) *Syncer {
	if runner == nil || tasks == nil || index == nil || locks == nil {
		panic("search syncer requires a runner, a task source, an index and a task locker")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		runner: runner,
		tasks:  tasks,
		index:  index,
		locks:  locks,
		logger: logger.With(slog.String("component", "search_syncer")),
	}
}

// HandleEvent submits a reindex job for task.saved and task.deleted events
// and ignores every other type.
func (s *Syncer) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeTaskSaved && event.Type != events.TypeTaskDeleted {
		return nil
	}

	var payload events.TaskChanged
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}

	return s.Submit(ctx, payload.TaskID, payload.UserID, event.Type)
}

// Submit persists and queues a reindex job for one task. A full queue is not
// an error: the job is already persisted and the runner will pick it up
// later. reason is only logged.
func (s *Syncer) Submit(ctx context.Context, taskID, userID uuid.UUID, reason string) error {
	job, err := NewReindexJob(taskID, userID, s.tasks, s.index, s.locks, s.logger)
	if err != nil {
		return err
	}

	err = s.runner.Submit(ctx, job)
	switch {
	case errors.Is(err, jobs.ErrQueueFull):
		s.logger.Warn("search sync queue full, job deferred",
			"job_id", job.ID(),
			"task_id", taskID,
			"reason", reason)
		return nil
	case err != nil:
		return fmt.Errorf("failed to submit reindex job for task %s: %w", taskID, err)
	}

	s.logger.Debug("reindex job submitted",
		"job_id", job.ID(),
		"task_id", taskID,
		"reason", reason)
	return nil
}

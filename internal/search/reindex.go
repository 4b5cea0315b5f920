package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// JobTypeReindex identifies reindex jobs in the job store.
const JobTypeReindex = "search.reindex"

// TaskSource is the read side of the task store the projection copies from.
type TaskSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// TaskLocker serializes work on a single task. Reindex jobs read the task
// and write its document while holding the lock, so a job that loaded an
// older version can never overwrite a job that started after it.
type TaskLocker interface {
	WithTaskLock(ctx context.Context, taskID uuid.UUID, fn func(ctx context.Context) error) error
}

type reindexPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	UserID uuid.UUID `json:"user_id"`
}

// ReindexJob copies the current state of one task into the index, or removes
// it from the index when the task no longer exists.
type ReindexJob struct {
	id      uuid.UUID
	payload reindexPayload
	raw     []byte
	tasks   TaskSource
	index   Index
	locks   TaskLocker
	logger  *slog.Logger
}

var _ jobs.Job = (*ReindexJob)(nil)

// NewReindexJob creates a job for taskID.
func NewReindexJob(
	taskID, userID uuid.UUID,
	tasks TaskSource,
	index Index,
	locks TaskLocker,
	logger *slog.Logger,
) (*ReindexJob, error) {
	return newReindexJob(uuid.New(), reindexPayload{TaskID: taskID, UserID: userID}, tasks, index, locks, logger)
}

func newReindexJob(
	id uuid.UUID,
	payload reindexPayload,
	tasks TaskSource,
	index Index,
	locks TaskLocker,
	logger *slog.Logger,
) (*ReindexJob, error) {
	if payload.TaskID == uuid.Nil {
		return nil, fmt.Errorf("reindex job requires a task ID")
	}
	if locks == nil {
		return nil, fmt.Errorf("reindex job requires a task locker")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reindex payload: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReindexJob{
		id:      id,
		payload: payload,
		raw:     raw,
		tasks:   tasks,
		index:   index,
		locks:   locks,
		logger:  logger,
	}, nil
}

// ID returns the job ID.
func (j *ReindexJob) ID() uuid.UUID { return j.id }

// Type returns JobTypeReindex.
func (j *ReindexJob) Type() string { return JobTypeReindex }

// Payload returns the JSON encoded task reference.
func (j *ReindexJob) Payload() []byte { return j.raw }

// TaskID returns the task the job reindexes.
func (j *ReindexJob) TaskID() uuid.UUID { return j.payload.TaskID }

// Execute reloads the task and writes or removes its document under the
// task's lock.
func (j *ReindexJob) Execute(ctx context.Context) error {
	return j.locks.WithTaskLock(ctx, j.payload.TaskID, j.reindex)
}

func (j *ReindexJob) reindex(ctx context.Context) error {
	task, err := j.tasks.GetByID(ctx, j.payload.TaskID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := j.index.Delete(ctx, j.payload.TaskID); err != nil {
			return fmt.Errorf("failed to remove task %s from index: %w", j.payload.TaskID, err)
		}
		j.logger.Debug("removed task from search index", "task_id", j.payload.TaskID)
		return nil
	case err != nil:
		return fmt.Errorf("failed to load task %s for indexing: %w", j.payload.TaskID, err)
	}

	if err := j.index.Upsert(ctx, DocumentFromTask(task)); err != nil {
		return fmt.Errorf("failed to index task %s: %w", task.ID, err)
	}
	j.logger.Debug("indexed task", "task_id", task.ID)
	return nil
}

// ReindexFactory rebuilds persisted reindex jobs for the job runner.
func ReindexFactory(tasks TaskSource, index Index, locks TaskLocker, logger *slog.Logger) jobs.Factory {
	return func(rec jobs.Record) (jobs.Job, error) {
		var payload reindexPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid reindex payload: %w", err)
		}
		return newReindexJob(rec.ID, payload, tasks, index, locks, logger)
	}
}

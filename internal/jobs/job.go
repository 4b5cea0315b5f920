package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a persisted job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrQueueFull is returned by Submit when the in-memory queue has no
	// room. The job is already persisted and will be picked up later.
	ErrQueueFull = errors.New("job queue is full")

	// ErrRunnerStopped is returned by Submit after Stop.
	ErrRunnerStopped = errors.New("job runner is stopped")

	// ErrUnknownJobType is returned when no factory is registered for a
	// recovered job's type.
	ErrUnknownJobType = errors.New("unknown job type")
)

// Job is a unit of background work.
type Job interface {
	ID() uuid.UUID
	Type() string
	// Payload is the JSON document the job is persisted and rebuilt from.
	Payload() []byte
	Execute(ctx context.Context) error
}

// Record is a job as persisted by a Store.
type Record struct {
	ID           uuid.UUID
	Type         string
	Payload      []byte
	Status       Status
	Attempts     int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists jobs and their status.
type Store interface {
	// SaveJob inserts job in the pending state.
	SaveJob(ctx context.Context, job Job) error

	// MarkProcessing moves a job to processing, increments its attempt
	// counter and returns the new count.
	MarkProcessing(ctx context.Context, id uuid.UUID) (int, error)

	// UpdateJobStatus sets the status and error message of a job.
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status Status, errorMsg string) error

	// GetPendingJobs returns pending jobs last updated more than olderThan
	// ago. Zero returns every pending job.
	GetPendingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error)

	// GetProcessingJobs returns processing jobs last updated more than
	// olderThan ago. Zero returns every processing job.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]Record, error)
}

// Observer is notified of job outcomes and queue depth. Metrics implement it.
type Observer interface {
	JobFinished(jobType string, result string)
	QueueDepth(depth int)
}

// Job results reported to an Observer.
const (
	ResultCompleted = "completed"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

type noopObserver struct{}

func (noopObserver) JobFinished(string, string) {}
func (noopObserver) QueueDepth(int)             {}

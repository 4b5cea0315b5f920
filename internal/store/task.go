package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
//
// Every method except GetByID is scoped to an owner. GetByID is the one
// unscoped lookup and exists so callers can tell "missing" from "not yours";
// its result must go through the authorization gate before use.
type TaskStore interface {
	// Create saves a new task. Returns ErrInvalidEntity for a task that fails
	// domain validation or a database constraint.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID regardless of owner.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update writes all mutable fields of task. The write matches on both
	// task.ID and task.UserID, so it cannot touch another user's row.
	// On success task.UpdatedAt holds the timestamp as stored.
	// Returns ErrTaskNotFound when no row matched.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes the task with id owned by userID.
	// Returns ErrTaskNotFound when no row matched.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// List returns one page of userID's tasks. now anchors the overdue and
	// upcoming filters. A filter that matches nothing yields an empty page.
	List(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter, now time.Time) (*domain.TaskPage, error)

	// WithTx returns a TaskStore bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}

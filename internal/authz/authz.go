// Package authz decides whether a principal may act on a task.
//
// Single-task operations call AuthorizeTask after loading the task and before
// touching it. Listing and searching are not checked here: those queries are
// always scoped to the principal by the store, so there is nothing to gate.
package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Action is an operation on a task.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var (
	// ErrNotOwned is returned when the principal does not own the task.
	ErrNotOwned = errors.New("task is not owned by the requesting user")

	// ErrNoPrincipal is returned when the principal is the zero UUID.
	ErrNoPrincipal = errors.New("no authenticated principal")

	// ErrUnknownAction is returned for actions outside the known set.
	ErrUnknownAction = errors.New("unknown action")
)

// AuthorizeTask reports whether principal may perform action on task.
//
// For ActionCreate the task is the one about to be inserted, and its owner
// must already be the principal. Every other action requires ownership of
// the stored task.
func AuthorizeTask(principal uuid.UUID, action Action, task *domain.Task) error {
	if principal == uuid.Nil {
		return ErrNoPrincipal
	}
	if task == nil {
		return fmt.Errorf("authorize %s: nil task", action)
	}

	switch action {
	case ActionView, ActionCreate, ActionUpdate, ActionDelete:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if !task.OwnedBy(principal) {
		return fmt.Errorf("%w: %s", ErrNotOwned, action)
	}
	return nil
}

package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskflow-api/internal/authz"
)

// Sentinel errors returned by the services. Callers check them with
// errors.Is; the API layer maps them to status codes.
var (
	// ErrNotOwned indicates the task belongs to another user. It maps to
	// 403 Forbidden.
	ErrNotOwned = authz.ErrNotOwned

	// ErrInvalidCredentials indicates an unknown login or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TaskServiceError adds the failing operation to an unexpected task service
// error.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// UserServiceError adds the failing operation to an unexpected user service
// error.
type UserServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *UserServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("user service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("user service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *UserServiceError) Unwrap() error {
	return e.Err
}

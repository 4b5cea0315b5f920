package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

// TaskService is a testify/mock implementation of service.TaskService. It
// is declared without importing the service package so service tests can
// use this package too.
type TaskService struct {
	mock.Mock
}

func taskResult(args mock.Arguments) (*domain.Task, error) {
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

func pageResult(args mock.Arguments) (*domain.TaskPage, error) {
	if page, ok := args.Get(0).(*domain.TaskPage); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

// CreateTask implements service.TaskService.
func (m *TaskService) CreateTask(ctx context.Context, principal uuid.UUID, in domain.TaskInput) (*domain.Task, error) {
	return taskResult(m.Called(ctx, principal, in))
}

// GetTask implements service.TaskService.
func (m *TaskService) GetTask(ctx context.Context, principal, id uuid.UUID, includeAuthor bool) (*domain.Task, error) {
	return taskResult(m.Called(ctx, principal, id, includeAuthor))
}

// UpdateTask implements service.TaskService.
func (m *TaskService) UpdateTask(
	ctx context.Context,
	principal, id uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	return taskResult(m.Called(ctx, principal, id, patch))
}

// DeleteTask implements service.TaskService.
func (m *TaskService) DeleteTask(ctx context.Context, principal, id uuid.UUID) error {
	return m.Called(ctx, principal, id).Error(0)
}

// ListTasks implements service.TaskService.
func (m *TaskService) ListTasks(
	ctx context.Context,
	principal uuid.UUID,
	filter domain.TaskFilter,
) (*domain.TaskPage, error) {
	return pageResult(m.Called(ctx, principal, filter))
}

// SearchTasks implements service.TaskService.
func (m *TaskService) SearchTasks(
	ctx context.Context,
	principal uuid.UUID,
	q domain.SearchQuery,
) (*domain.TaskPage, error) {
	return pageResult(m.Called(ctx, principal, q))
}

// CheckAccess implements service.TaskService.
func (m *TaskService) CheckAccess(ctx context.Context, principal, id uuid.UUID, action authz.Action) error {
	return m.Called(ctx, principal, id, action).Error(0)
}

package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TaskStore is a testify/mock implementation of store.TaskStore.
type TaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.
func (m *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// GetByID implements store.TaskStore.
func (m *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

// Update implements store.TaskStore.
func (m *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// Delete implements store.TaskStore.
func (m *TaskStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// List implements store.TaskStore.
func (m *TaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
	now time.Time,
) (*domain.TaskPage, error) {
	args := m.Called(ctx, userID, filter, now)
	if page, ok := args.Get(0).(*domain.TaskPage); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

// WithTx returns the configured store, or m when none is set.
func (m *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	args := m.Called(tx)
	if ret, ok := args.Get(0).(store.TaskStore); ok {
		return ret
	}
	return m
}

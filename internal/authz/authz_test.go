package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeTask(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	task := &domain.Task{ID: uuid.New(), UserID: owner}

	tests := []struct {
		name      string
		principal uuid.UUID
		action    Action
		task      *domain.Task
		wantErr   error
	}{
		{"owner views", owner, ActionView, task, nil},
		{"owner updates", owner, ActionUpdate, task, nil},
		{"owner deletes", owner, ActionDelete, task, nil},
		{"owner creates own task", owner, ActionCreate, task, nil},
		{"stranger views", stranger, ActionView, task, ErrNotOwned},
		{"stranger updates", stranger, ActionUpdate, task, ErrNotOwned},
		{"stranger deletes", stranger, ActionDelete, task, ErrNotOwned},
		{"stranger creates for someone else", stranger, ActionCreate, task, ErrNotOwned},
		{"no principal", uuid.Nil, ActionView, task, ErrNoPrincipal},
		{"unowned task", owner, ActionView, &domain.Task{ID: uuid.New()}, ErrNotOwned},
		{"unknown action", owner, Action("share"), task, ErrUnknownAction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := AuthorizeTask(tc.principal, tc.action, tc.task)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAuthorizeTaskNilTask(t *testing.T) {
	err := AuthorizeTask(uuid.New(), ActionView, nil)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotOwned)
}

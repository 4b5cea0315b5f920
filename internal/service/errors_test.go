package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.ErrorIs(t, ErrNotOwned, authz.ErrNotOwned)
	assert.NotErrorIs(t, ErrInvalidCredentials, ErrNotOwned)
}

func TestServiceErrors(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name    string
		err     error
		wantMsg string
		wantErr error
	}{
		{
			name:    "task error with cause",
			err:     NewTaskServiceError(OpList, "failed to list tasks", cause),
			wantMsg: "task service list failed: failed to list tasks: connection refused",
			wantErr: cause,
		},
		{
			name:    "task error without cause",
			err:     &TaskServiceError{Operation: OpCreate, Message: "failed to save task"},
			wantMsg: "task service create failed: failed to save task",
		},
		{
			name:    "user error with cause",
			err:     &UserServiceError{Operation: "register", Message: "failed to save user", Err: cause},
			wantMsg: "user service register failed: failed to save user: connection refused",
			wantErr: cause,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantMsg, tc.err.Error())
			if tc.wantErr != nil {
				assert.ErrorIs(t, tc.err, tc.wantErr)
			} else {
				assert.Nil(t, errors.Unwrap(tc.err))
			}
		})
	}
}

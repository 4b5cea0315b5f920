package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	invalidID := domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported media type", shared.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"malformed body", fmt.Errorf("%w: unexpected EOF", shared.ErrMalformedBody), http.StatusBadRequest},
		{"malformed id", invalidID, http.StatusNotFound},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"revoked token", auth.ErrRevokedToken, http.StatusUnauthorized},
		{"no principal", authz.ErrNoPrincipal, http.StatusUnauthorized},
		{"not owned", fmt.Errorf("%w: update", service.ErrNotOwned), http.StatusForbidden},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"wrapped not found", service.NewTaskServiceError("get", "failed", store.ErrTaskNotFound), http.StatusNotFound},
		{"validation", domain.NewValidationError("title", domain.MsgTitleRequired, nil), http.StatusUnprocessableEntity},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnprocessableEntity},
		{"email taken", store.ErrEmailExists, http.StatusUnprocessableEntity},
		{"username taken", store.ErrUsernameExists, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"malformed id", domain.NewValidationError("id", "x", domain.ErrInvalidID), "Task not found"},
		{"forbidden", service.ErrNotOwned, MsgForbidden},
		{"unauthenticated", domain.ErrUnauthorized, MsgUnauthenticated},
		{"validation", domain.NewValidationError("title", "x", nil), MsgInvalidData},
		{"internal details hidden", errors.New("pq: relation tasks does not exist"), "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestFieldErrors(t *testing.T) {
	errs := domain.ValidationErrors{}
	errs.Add("title", domain.MsgTitleRequired)
	errs.Add("priority", domain.MsgPriorityInvalid)

	assert.Equal(t, map[string][]string{"login": {MsgInvalidCredentials}}, FieldErrors(service.ErrInvalidCredentials))
	assert.Equal(t, map[string][]string{"email": {MsgEmailTaken}}, FieldErrors(store.ErrEmailExists))
	assert.Equal(t, map[string][]string{"username": {MsgUsernameTaken}}, FieldErrors(store.ErrUsernameExists))
	assert.Equal(t, map[string][]string(errs), FieldErrors(fmt.Errorf("create: %w", errs.Err())))
	assert.Equal(t,
		map[string][]string{"title": {domain.MsgTitleTooLong}},
		FieldErrors(domain.NewValidationError("title", domain.MsgTitleTooLong, nil)))
	assert.Nil(t, FieldErrors(errors.New("boom")))
}

func TestHandleAPIError(t *testing.T) {
	t.Run("internal error uses default message", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		HandleAPIError(rr, req, errors.New("dial tcp 10.0.0.5:5432: connection refused"), "Failed to list tasks")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, "Failed to list tasks", resp.Error)
		assert.Empty(t, resp.Errors)
		assert.NotContains(t, rr.Body.String(), "10.0.0.5")
	})

	t.Run("validation error carries fields", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)

		HandleAPIError(rr, req, domain.NewValidationError("title", domain.MsgTitleRequired, nil), "ignored")

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, MsgInvalidData, resp.Error)
		assert.Equal(t, []string{domain.MsgTitleRequired}, resp.Errors["title"])
	})
}

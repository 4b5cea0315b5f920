package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var _ service.TaskService = (*mocks.TaskService)(nil)

var handlerNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTaskRouter(svc *mocks.TaskService) http.Handler {
	h := NewTaskHandler(svc, time.UTC, nil)
	r := chi.NewRouter()
	r.Get("/api/tasks", h.ListTasks)
	r.Post("/api/tasks", h.CreateTask)
	r.Get("/api/tasks/search", h.SearchTasks)
	r.Get("/api/tasks/{id}", h.GetTask)
	r.Put("/api/tasks/{id}", h.UpdateTask)
	r.Patch("/api/tasks/{id}", h.UpdateTask)
	r.Delete("/api/tasks/{id}", h.DeleteTask)
	return r
}

func taskRequest(t *testing.T, method, target, body string, userID uuid.UUID) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		req = req.WithContext(shared.WithUserID(req.Context(), userID))
	}
	return req
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func sampleTask(userID uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "Buy milk",
		IsCompleted: false,
		Priority:    domain.PriorityHigh,
		CreatedAt:   handlerNow,
		UpdatedAt:   handlerNow,
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	userID := uuid.New()

	t.Run("creates task for principal", func(t *testing.T) {
		svc := &mocks.TaskService{}
		task := sampleTask(userID)
		svc.On("CreateTask", mock.Anything, userID, mock.MatchedBy(func(in domain.TaskInput) bool {
			return in.Title == "Buy milk" &&
				in.Priority == domain.PriorityHigh &&
				in.IsCompleted &&
				in.DueDate != nil &&
				in.DueDate.Equal(time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC))
		})).Return(task, nil).Once()

		body := `{"title":"Buy milk","is_completed":"1","priority":"high","due_date":"2099-01-01 10:00:00","user_id":"` + uuid.NewString() + `"}`
		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPost, "/api/tasks", body, userID))

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, task.ID.String(), resp["id"])
		assert.Equal(t, "Buy milk", resp["title"])
		assert.Equal(t, false, resp["is_completed"])
		assert.NotContains(t, resp, "author")
		svc.AssertExpectations(t)
	})

	t.Run("reports field errors", func(t *testing.T) {
		svc := &mocks.TaskService{}
		body := `{"priority":"critical","is_completed":"yes","due_date":"tomorrow"}`
		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPost, "/api/tasks", body, userID))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, MsgInvalidData, resp.Error)
		assert.Equal(t, []string{domain.MsgTitleRequired}, resp.Errors["title"])
		assert.Equal(t, []string{domain.MsgPriorityInvalid}, resp.Errors["priority"])
		assert.Equal(t, []string{"The task completion status must be a boolean"}, resp.Errors["is_completed"])
		assert.Equal(t, []string{msgDueDateFormat}, resp.Errors["due_date"])
		svc.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires completion status and non-empty title", func(t *testing.T) {
		svc := &mocks.TaskService{}
		body := `{"title":"","priority":"low"}`
		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPost, "/api/tasks", body, userID))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeError(t, rr)
		assert.Equal(t, []string{domain.MsgTitleRequired}, resp.Errors["title"])
		assert.Equal(t, []string{"The task completion status field is required."}, resp.Errors["is_completed"])
	})

	t.Run("passes domain errors through", func(t *testing.T) {
		svc := &mocks.TaskService{}
		errs := domain.ValidationErrors{}
		errs.Add("due_date", domain.MsgDueDateFuture)
		svc.On("CreateTask", mock.Anything, userID, mock.Anything).Return(nil, errs.Err()).Once()

		body := `{"title":"Old","is_completed":false,"priority":"low","due_date":"2000-01-01 00:00:00"}`
		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPost, "/api/tasks", body, userID))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, []string{domain.MsgDueDateFuture}, decodeError(t, rr).Errors["due_date"])
	})

	tests := []struct {
		name        string
		contentType string
		body        string
		userID      uuid.UUID
		wantStatus  int
	}{
		{"wrong content type", "text/plain", `{"title":"x"}`, userID, http.StatusUnsupportedMediaType},
		{"malformed json", "application/json", `{"title":`, userID, http.StatusBadRequest},
		{"array body", "application/json", `[]`, userID, http.StatusBadRequest},
		{"no principal", "application/json", `{}`, uuid.Nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.TaskService{}
			req := taskRequest(t, http.MethodPost, "/api/tasks", tt.body, tt.userID)
			req.Header.Set("Content-Type", tt.contentType)

			rr := serve(newTaskRouter(svc), req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			svc.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTaskHandler_GetTask(t *testing.T) {
	userID := uuid.New()
	task := sampleTask(userID)

	tests := []struct {
		name       string
		path       string
		setup      func(svc *mocks.TaskService)
		wantStatus int
		wantError  string
	}{
		{
			name:       "malformed id is not found",
			path:       "/api/tasks/not-a-uuid",
			wantStatus: http.StatusNotFound,
			wantError:  "Task not found",
		},
		{
			name: "missing task",
			path: "/api/tasks/" + task.ID.String(),
			setup: func(svc *mocks.TaskService) {
				svc.On("GetTask", mock.Anything, userID, task.ID, false).Return(nil, store.ErrTaskNotFound)
			},
			wantStatus: http.StatusNotFound,
			wantError:  "Task not found",
		},
		{
			name: "foreign task",
			path: "/api/tasks/" + task.ID.String(),
			setup: func(svc *mocks.TaskService) {
				svc.On("GetTask", mock.Anything, userID, task.ID, false).Return(nil, service.ErrNotOwned)
			},
			wantStatus: http.StatusForbidden,
			wantError:  MsgForbidden,
		},
		{
			name: "own task with author",
			path: "/api/tasks/" + task.ID.String() + "?include=author",
			setup: func(svc *mocks.TaskService) {
				svc.On("GetTask", mock.Anything, userID, task.ID, true).Return(task, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "store failure",
			path: "/api/tasks/" + task.ID.String(),
			setup: func(svc *mocks.TaskService) {
				svc.On("GetTask", mock.Anything, userID, task.ID, false).Return(nil, errors.New("connection reset"))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to get task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.TaskService{}
			if tt.setup != nil {
				tt.setup(svc)
			}

			rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodGet, tt.path, "", userID))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rr).Error)
				assert.NotContains(t, rr.Body.String(), "connection reset")
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	userID := uuid.New()
	task := sampleTask(userID)
	path := "/api/tasks/" + task.ID.String()

	t.Run("applies present fields only", func(t *testing.T) {
		svc := &mocks.TaskService{}
		svc.On("UpdateTask", mock.Anything, userID, task.ID, mock.MatchedBy(func(p domain.TaskPatch) bool {
			return p.IsCompleted.Set && p.IsCompleted.Value &&
				p.DueDate.Set && p.DueDate.Value == nil &&
				!p.Title.Set && !p.Priority.Set && !p.Description.Set
		})).Return(task, nil).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPatch, path, `{"is_completed":"true","due_date":null}`, userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("put is partial too", func(t *testing.T) {
		svc := &mocks.TaskService{}
		svc.On("UpdateTask", mock.Anything, userID, task.ID, mock.MatchedBy(func(p domain.TaskPatch) bool {
			return p.Title.Set && p.Title.Value == "Renamed" && !p.IsCompleted.Set
		})).Return(task, nil).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPut, path, `{"title":"Renamed"}`, userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	invalidBody := `{"title":null,"priority":"critical"}`
	tests := []struct {
		name       string
		accessErr  error
		wantStatus int
	}{
		{"missing task wins over field errors", store.ErrTaskNotFound, http.StatusNotFound},
		{"foreign task wins over field errors", service.ErrNotOwned, http.StatusForbidden},
		{"own task reports field errors", nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.TaskService{}
			svc.On("CheckAccess", mock.Anything, userID, task.ID, authz.ActionUpdate).Return(tt.accessErr).Once()

			rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPatch, path, invalidBody, userID))

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusUnprocessableEntity {
				resp := decodeError(t, rr)
				assert.Equal(t, []string{domain.MsgTitleRequired}, resp.Errors["title"])
				assert.Equal(t, []string{domain.MsgPriorityInvalid}, resp.Errors["priority"])
			}
			svc.AssertExpectations(t)
			svc.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("malformed body before lookup", func(t *testing.T) {
		svc := &mocks.TaskService{}
		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodPatch, path, `{"title":`, userID))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "CheckAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTaskHandler_DeleteTask(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()

	t.Run("deletes own task", func(t *testing.T) {
		svc := &mocks.TaskService{}
		svc.On("DeleteTask", mock.Anything, userID, id).Return(nil).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodDelete, "/api/tasks/"+id.String(), "", userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp shared.MessageResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, MsgTaskDeleted, resp.Message)
	})

	t.Run("foreign task", func(t *testing.T) {
		svc := &mocks.TaskService{}
		svc.On("DeleteTask", mock.Anything, userID, id).Return(service.ErrNotOwned).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodDelete, "/api/tasks/"+id.String(), "", userID))

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestTaskHandler_ListTasks(t *testing.T) {
	userID := uuid.New()
	task := sampleTask(userID)

	t.Run("builds filter from query", func(t *testing.T) {
		svc := &mocks.TaskService{}
		page := &domain.TaskPage{
			Tasks: []*domain.Task{task},
			Meta:  domain.NewPageMeta(1, 1, 5, 1),
		}
		svc.On("ListTasks", mock.Anything, userID, mock.MatchedBy(func(f domain.TaskFilter) bool {
			return f.Priority != nil && *f.Priority == domain.PriorityHigh &&
				f.IsCompleted != nil && !*f.IsCompleted &&
				f.DueOn != nil && f.DueOn.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) &&
				f.SortBy == domain.SortByDueDate && f.SortOrder == domain.SortAsc &&
				f.PerPage == 5 && f.Page == 0 &&
				f.IncludeAuthor
		})).Return(page, nil).Once()

		target := "/api/tasks?priority=high&is_completed=0&due_date=2026-03-11&sort_by=due_date&sort_order=asc&per_page=5&include=author"
		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodGet, target, "", userID))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Len(t, resp["data"], 1)
		meta := resp["meta"].(map[string]any)
		assert.EqualValues(t, 1, meta["total"])
		assert.EqualValues(t, 5, meta["per_page"])
		svc.AssertExpectations(t)
	})

	t.Run("empty page has empty data", func(t *testing.T) {
		svc := &mocks.TaskService{}
		svc.On("ListTasks", mock.Anything, userID, mock.Anything).
			Return(&domain.TaskPage{Meta: domain.NewPageMeta(0, 1, 15, 0)}, nil).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodGet, "/api/tasks", "", userID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"data":[]`)
		assert.Contains(t, rr.Body.String(), `"from":null`)
	})

	invalid := []struct {
		query string
		field string
		msg   string
	}{
		{"per_page=0", "per_page", domain.MsgPerPageRange},
		{"per_page=101", "per_page", domain.MsgPerPageRange},
		{"per_page=abc", "per_page", domain.MsgPerPageRange},
		{"page=0", "page", domain.MsgPageMin},
		{"priority=critical", "priority", domain.MsgPriorityInvalid},
		{"is_completed=maybe", "is_completed", "The task completion status must be true or false"},
		{"sort_by=title", "sort_by", "The selected sort field is invalid."},
		{"due_date=03/11/2026", "due_date", "The due date does not match the format Y-m-d."},
		{"upcoming=soon", "upcoming", domain.MsgUpcomingRange},
	}
	for _, tt := range invalid {
		t.Run(tt.query, func(t *testing.T) {
			svc := &mocks.TaskService{}
			rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodGet, "/api/tasks?"+tt.query, "", userID))

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Equal(t, []string{tt.msg}, decodeError(t, rr).Errors[tt.field])
			svc.AssertNotCalled(t, "ListTasks", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTaskHandler_SearchTasks(t *testing.T) {
	userID := uuid.New()

	t.Run("passes query to service", func(t *testing.T) {
		svc := &mocks.TaskService{}
		svc.On("SearchTasks", mock.Anything, userID, mock.MatchedBy(func(q domain.SearchQuery) bool {
			return q.Query == "milk" && q.Priority == nil && !q.IncludeAuthor && q.PerPage == 10
		})).Return(&domain.TaskPage{Meta: domain.NewPageMeta(0, 1, 10, 0)}, nil).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodGet, "/api/tasks/search?query=+milk+&per_page=10", "", userID))

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("service validation", func(t *testing.T) {
		svc := &mocks.TaskService{}
		errs := domain.ValidationErrors{}
		errs.Add("query", "A search query is required")
		svc.On("SearchTasks", mock.Anything, userID, mock.Anything).Return(nil, errs.Err()).Once()

		rr := serve(newTaskRouter(svc), taskRequest(t, http.MethodGet, "/api/tasks/search", "", userID))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, []string{"A search query is required"}, decodeError(t, rr).Errors["query"])
	})
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		raw          string
		lenient      bool
		want, wantOK bool
	}{
		{`true`, false, true, true},
		{`false`, false, false, true},
		{`1`, false, true, true},
		{`0`, false, false, true},
		{`"1"`, false, true, true},
		{`"0"`, false, false, true},
		{`"true"`, false, false, false},
		{`"yes"`, false, false, false},
		{`2`, false, false, false},
		{`"true"`, true, true, true},
		{`"yes"`, true, false, true},
		{`{}`, true, false, false},
	}
	for _, tt := range tests {
		got, ok := parseBool(json.RawMessage(tt.raw), tt.lenient)
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

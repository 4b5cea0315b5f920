package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/taskflow-api/internal/api/presenter"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// TaskHandler serves the /api/tasks routes.
type TaskHandler struct {
	taskService service.TaskService
	presenter   *presenter.Presenter
	logger      *slog.Logger
}

// NewTaskHandler creates a TaskHandler. Dates in requests and responses are
// interpreted in loc; nil means UTC.
func NewTaskHandler(taskService service.TaskService, loc *time.Location, logger *slog.Logger) *TaskHandler {
	if taskService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("taskService cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		presenter:   presenter.New(loc),
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r, h.logger)
	if !ok {
		return
	}

	filter, err := toTaskFilter(r.URL.Query(), h.presenter.Location())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.taskService.ListTasks(r.Context(), userID, filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.presenter.Page(page))
}

// SearchTasks handles GET /api/tasks/search.
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r, h.logger)
	if !ok {
		return
	}

	q, err := toSearchQuery(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.taskService.SearchTasks(r.Context(), userID, q)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.presenter.Page(page))
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := handleUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateTaskRequest
	present, err := shared.DecodeJSON(r, &req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	in, err := toTaskInput(&req, present, h.presenter.Location())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created",
		slog.String("user_id", userID.String()),
		slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, h.presenter.Task(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	includeAuthor := includes(r.URL.Query().Get("include"), "author")
	task, err := h.taskService.GetTask(r.Context(), userID, taskID, includeAuthor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.presenter.Task(task))
}

// UpdateTask handles PUT and PATCH /api/tasks/{id}. Both methods are
// partial: keys missing from the body are left unchanged.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	present, err := shared.DecodeJSON(r, &req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	patch, err := toTaskPatch(&req, present, h.presenter.Location())
	if err != nil {
		// A missing or foreign task is reported ahead of field errors.
		if accessErr := h.taskService.CheckAccess(r.Context(), userID, taskID, authz.ActionUpdate); accessErr != nil {
			HandleAPIError(w, r, accessErr, "Failed to update task")
			return
		}
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), userID, taskID, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, h.presenter.Task(task))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{Message: MsgTaskDeleted})
}

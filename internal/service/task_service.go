package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/authz"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/search"
	"github.com/phrazzld/taskflow-api/internal/store"
	"golang.org/x/sync/singleflight"
)

// Operation names used in errors, logs and metrics.
const (
	OpCreate = "create"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpSearch = "search"
)

// ListCache caches pages of an owner's task listing. Implementations key
// pages by a per-owner generation that Bump advances.
type ListCache interface {
	Generation(ctx context.Context, userID uuid.UUID) (int64, error)
	Bump(ctx context.Context, userID uuid.UUID) error
	GetList(ctx context.Context, userID uuid.UUID, gen int64, filter domain.TaskFilter) (*domain.TaskPage, bool, error)
	SetList(ctx context.Context, userID uuid.UUID, gen int64, filter domain.TaskFilter, page *domain.TaskPage) error
}

// OperationRecorder counts task operations.
type OperationRecorder interface {
	TaskOperation(operation string, err error)
}

// TaskService provides the task operations. principal is always the
// authenticated user making the request.
type TaskService interface {
	// CreateTask creates a task owned by principal.
	CreateTask(ctx context.Context, principal uuid.UUID, in domain.TaskInput) (*domain.Task, error)

	// GetTask returns a task the principal owns, with its author attached
	// when includeAuthor is set.
	GetTask(ctx context.Context, principal, id uuid.UUID, includeAuthor bool) (*domain.Task, error)

	// UpdateTask applies patch to a task the principal owns.
	UpdateTask(ctx context.Context, principal, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// DeleteTask deletes a task the principal owns.
	DeleteTask(ctx context.Context, principal, id uuid.UUID) error

	// ListTasks returns one page of the principal's tasks.
	ListTasks(ctx context.Context, principal uuid.UUID, filter domain.TaskFilter) (*domain.TaskPage, error)

	// SearchTasks returns one page of the principal's tasks matching q.
	SearchTasks(ctx context.Context, principal uuid.UUID, q domain.SearchQuery) (*domain.TaskPage, error)

	// CheckAccess reports whether the task exists and principal may perform
	// action on it, without changing anything. Handlers use it to report a
	// missing or foreign task ahead of a malformed request body.
	CheckAccess(ctx context.Context, principal, id uuid.UUID, action authz.Action) error
}

// TaskServiceOption configures optional collaborators.
type TaskServiceOption func(*taskServiceImpl)

// WithListCache enables list caching.
func WithListCache(cache ListCache) TaskServiceOption {
	return func(s *taskServiceImpl) { s.cache = cache }
}

// WithOperationRecorder records each operation's outcome.
func WithOperationRecorder(recorder OperationRecorder) TaskServiceOption {
	return func(s *taskServiceImpl) { s.recorder = recorder }
}

// WithClock replaces the wall clock.
func WithClock(clock domain.Clock) TaskServiceOption {
	return func(s *taskServiceImpl) { s.clock = clock }
}

// WithMaxQueryLength bounds search query length. Zero means unbounded.
func WithMaxQueryLength(n int) TaskServiceOption {
	return func(s *taskServiceImpl) { s.maxQueryLength = n }
}

// txRunner runs fn with a task store bound to a transaction.
type txRunner func(ctx context.Context, fn func(ctx context.Context, tasks store.TaskStore) error) error

type taskServiceImpl struct {
	tasks   store.TaskStore
	users   store.UserStore
	index   search.Index
	emitter events.EventEmitter
	inTx    txRunner

	cache          ListCache
	recorder       OperationRecorder
	clock          domain.Clock
	maxQueryLength int

	group  singleflight.Group
	logger *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a TaskService. Updates run in transactions on db.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	users store.UserStore,
	index search.Index,
	emitter events.EventEmitter,
	db *sql.DB,
	logger *slog.Logger,
	opts ...TaskServiceOption,
) (TaskService, error) {
	switch {
	case tasks == nil:
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	case users == nil:
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	case index == nil:
		return nil, domain.NewValidationError("index", "cannot be nil", domain.ErrValidation)
	case emitter == nil:
		return nil, domain.NewValidationError("emitter", "cannot be nil", domain.ErrValidation)
	case db == nil:
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		tasks:   tasks,
		users:   users,
		index:   index,
		emitter: emitter,
		clock:   domain.SystemClock,
		logger:  logger.With(slog.String("component", "task_service")),
	}
	s.inTx = func(ctx context.Context, fn func(ctx context.Context, tasks store.TaskStore) error) error {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, s.tasks.WithTx(tx))
		})
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	principal uuid.UUID,
	in domain.TaskInput,
) (task *domain.Task, err error) {
	defer s.record(OpCreate, &err)
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err = domain.NewTask(principal, in, s.clock())
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeTask(principal, authz.ActionCreate, task); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("user_id", principal.String()))
		return nil, NewTaskServiceError(OpCreate, "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", principal.String()))

	s.afterWrite(ctx, events.TypeTaskSaved, task.ID, principal)
	return task, nil
}

// GetTask implements TaskService.GetTask.
func (s *taskServiceImpl) GetTask(
	ctx context.Context,
	principal, id uuid.UUID,
	includeAuthor bool,
) (task *domain.Task, err error) {
	defer s.record(OpGet, &err)

	task, err = s.loadAuthorized(ctx, s.tasks, principal, id, authz.ActionView)
	if err != nil {
		return nil, err
	}

	if includeAuthor {
		if err := s.attachAuthors(ctx, []*domain.Task{task}); err != nil {
			return nil, NewTaskServiceError(OpGet, "failed to load author", err)
		}
	}
	return task, nil
}

// UpdateTask implements TaskService.UpdateTask. The load, the ownership
// check and the write share one transaction. A patch that changes nothing
// is not written, so updated_at stays put.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	principal, id uuid.UUID,
	patch domain.TaskPatch,
) (task *domain.Task, err error) {
	defer s.record(OpUpdate, &err)
	log := logger.FromContextOrDefault(ctx, s.logger)

	var changed bool
	err = s.inTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		current, err := s.loadAuthorized(ctx, tasks, principal, id, authz.ActionUpdate)
		if err != nil {
			return err
		}

		changed, err = patch.Apply(current, s.clock())
		if err != nil {
			return err
		}
		if changed {
			if err := tasks.Update(ctx, current); err != nil {
				return NewTaskServiceError(OpUpdate, "failed to save task", err)
			}
		}
		task = current
		return nil
	})
	if err != nil {
		var serviceErr *TaskServiceError
		if errors.As(err, &serviceErr) {
			log.Error("failed to update task",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
		}
		return nil, err
	}

	if changed {
		log.Info("task updated",
			slog.String("task_id", id.String()),
			slog.String("user_id", principal.String()))
		s.afterWrite(ctx, events.TypeTaskSaved, id, principal)
	}
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, principal, id uuid.UUID) (err error) {
	defer s.record(OpDelete, &err)
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.loadAuthorized(ctx, s.tasks, principal, id, authz.ActionDelete); err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, principal, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted concurrently.
			return store.ErrTaskNotFound
		}
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return NewTaskServiceError(OpDelete, "failed to delete task", err)
	}

	log.Info("task deleted",
		slog.String("task_id", id.String()),
		slog.String("user_id", principal.String()))

	s.afterWrite(ctx, events.TypeTaskDeleted, id, principal)
	return nil
}

// ListTasks implements TaskService.ListTasks. Pages are served from the
// list cache when one is configured, and concurrent identical requests share
// one store query.
func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	principal uuid.UUID,
	filter domain.TaskFilter,
) (page *domain.TaskPage, err error) {
	defer s.record(OpList, &err)

	if principal == uuid.Nil {
		return nil, authz.ErrNoPrincipal
	}
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	page, err = s.loadPage(ctx, principal, filter)
	if err != nil {
		return nil, NewTaskServiceError(OpList, "failed to list tasks", err)
	}

	if filter.IncludeAuthor {
		if err := s.attachAuthors(ctx, page.Tasks); err != nil {
			return nil, NewTaskServiceError(OpList, "failed to load authors", err)
		}
	}
	return page, nil
}

// SearchTasks implements TaskService.SearchTasks. Results come from the
// search projection and may briefly lag behind writes.
func (s *taskServiceImpl) SearchTasks(
	ctx context.Context,
	principal uuid.UUID,
	q domain.SearchQuery,
) (page *domain.TaskPage, err error) {
	defer s.record(OpSearch, &err)
	log := logger.FromContextOrDefault(ctx, s.logger)

	if principal == uuid.Nil {
		return nil, authz.ErrNoPrincipal
	}
	q = q.Normalize()
	if err := q.Validate(s.maxQueryLength); err != nil {
		return nil, err
	}

	docs, total, err := s.index.Search(ctx, principal, q)
	if err != nil {
		log.Error("search failed",
			slog.String("error", err.Error()),
			slog.String("user_id", principal.String()))
		return nil, NewTaskServiceError(OpSearch, "failed to search tasks", err)
	}

	tasks := make([]*domain.Task, len(docs))
	for i, doc := range docs {
		tasks[i] = doc.Task()
	}
	if q.IncludeAuthor {
		if err := s.attachAuthors(ctx, tasks); err != nil {
			return nil, NewTaskServiceError(OpSearch, "failed to load authors", err)
		}
	}

	return &domain.TaskPage{
		Tasks: tasks,
		Meta:  domain.NewPageMeta(total, q.Page, q.PerPage, len(tasks)),
	}, nil
}

// CheckAccess implements TaskService.CheckAccess.
func (s *taskServiceImpl) CheckAccess(ctx context.Context, principal, id uuid.UUID, action authz.Action) error {
	_, err := s.loadAuthorized(ctx, s.tasks, principal, id, action)
	return err
}

// loadAuthorized fetches a task and checks that principal may perform
// action on it. A missing task is ErrTaskNotFound, a foreign one ErrNotOwned.
func (s *taskServiceImpl) loadAuthorized(
	ctx context.Context,
	tasks store.TaskStore,
	principal, id uuid.UUID,
	action authz.Action,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to load task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, NewTaskServiceError(string(action), "failed to load task", err)
	}

	if err := authz.AuthorizeTask(principal, action, task); err != nil {
		log.Warn("task access denied",
			slog.String("task_id", id.String()),
			slog.String("user_id", principal.String()),
			slog.String("action", string(action)))
		return nil, err
	}
	return task, nil
}

// loadPage returns the page from the cache or the store.
func (s *taskServiceImpl) loadPage(
	ctx context.Context,
	principal uuid.UUID,
	filter domain.TaskFilter,
) (*domain.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.clock()

	// Time-relative filters cannot be served from a cache.
	cacheable := s.cache != nil && filter.Overdue == nil && filter.UpcomingDays == nil

	var gen int64
	if cacheable {
		var err error
		gen, err = s.cache.Generation(ctx, principal)
		if err != nil {
			log.Warn("list cache unavailable", slog.String("error", err.Error()))
			cacheable = false
		}
	}

	if cacheable {
		page, hit, err := s.cache.GetList(ctx, principal, gen, filter)
		if err != nil {
			log.Warn("list cache read failed", slog.String("error", err.Error()))
		} else if hit {
			return page, nil
		}
	}

	// The shared query outlives any one caller, so it must not inherit the
	// first caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	key := flightKey(principal, gen, filter)
	v, err, _ := s.group.Do(key, func() (any, error) {
		page, err := s.tasks.List(flightCtx, principal, filter, now)
		if err != nil {
			return nil, err
		}
		if cacheable {
			if err := s.cache.SetList(flightCtx, principal, gen, filter, page); err != nil {
				log.Warn("list cache write failed", slog.String("error", err.Error()))
			}
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return clonePage(v.(*domain.TaskPage)), nil
}

// attachAuthors sets Author on every task from one batched user lookup.
func (s *taskServiceImpl) attachAuthors(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, 1)
	for _, t := range tasks {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}

	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if summary, ok := summaries[t.UserID]; ok {
			author := summary
			t.Author = &author
		}
	}
	return nil
}

// afterWrite invalidates the owner's cached listings and emits a change
// event. Neither step can fail the write. The write is committed by now, so
// a client that disconnects must not cancel either step.
func (s *taskServiceImpl) afterWrite(ctx context.Context, eventType string, taskID, userID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContextOrDefault(ctx, s.logger)

	if s.cache != nil {
		if err := s.cache.Bump(ctx, userID); err != nil {
			log.Warn("failed to invalidate list cache",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
		}
	}

	event, err := events.NewTaskChangedEvent(eventType, taskID, userID)
	if err != nil {
		log.Error("failed to build task event",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit task event",
			slog.String("error", err.Error()),
			slog.String("event_type", eventType),
			slog.String("task_id", taskID.String()))
	}
}

func (s *taskServiceImpl) record(operation string, err *error) {
	if s.recorder != nil {
		s.recorder.TaskOperation(operation, *err)
	}
}

// flightKey identifies identical list requests for singleflight.
func flightKey(principal uuid.UUID, gen int64, f domain.TaskFilter) string {
	return fmt.Sprintf("%s:%d:%s:%s:%d:%d:%s:%s:%s:%s:%s",
		principal, gen, f.SortBy, f.SortOrder, f.Page, f.PerPage,
		optionalString(f.IsCompleted), optionalString(f.Priority), optionalString(f.DueOn),
		optionalString(f.Overdue), optionalString(f.UpcomingDays))
}

func optionalString[T any](v *T) string {
	if v == nil {
		return "-"
	}
	switch x := any(*v).(type) {
	case time.Time:
		return strconv.FormatInt(x.Unix(), 10)
	default:
		return fmt.Sprint(x)
	}
}

// clonePage copies a shared page so callers can attach authors without
// racing each other.
func clonePage(page *domain.TaskPage) *domain.TaskPage {
	out := &domain.TaskPage{Meta: page.Meta, Tasks: make([]*domain.Task, len(page.Tasks))}
	for i, t := range page.Tasks {
		copied := *t
		out.Tasks[i] = &copied
	}
	return out
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgresTaskStore implements store.TaskStore.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store on db. If logger is nil, a
// default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// WithTx returns a store that runs on tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, user_id, title, description, is_completed, priority, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		nullString(task.Description),
		task.IsCompleted,
		string(task.Priority),
		nullTime(task.DueDate),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID. It is not owner scoped.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := "SELECT " + taskColumns + " FROM tasks WHERE id = $1"
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update. task.UpdatedAt is replaced by
// the stored value.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	// GREATEST keeps updated_at >= created_at even if the caller's clock lags.
	query := `
		UPDATE tasks
		SET title = $3, description = $4, is_completed = $5, priority = $6, due_date = $7,
			updated_at = GREATEST($8, created_at)
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		nullString(task.Description),
		task.IsCompleted,
		string(task.Priority),
		nullTime(task.DueDate),
		task.UpdatedAt,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	task.UpdatedAt = updatedAt.UTC()
	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *PostgresTaskStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List.
func (s *PostgresTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
	now time.Time,
) (*domain.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	q := buildTaskListQuery(userID, filter, now)

	var total int64
	if err := s.db.QueryRowContext(ctx, q.count, q.countArgs...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	tasks := make([]*domain.Task, 0, filter.PerPage)
	if filter.Offset() < total {
		rows, err := s.db.QueryContext(ctx, q.page, q.pageArgs...)
		if err != nil {
			log.Error("failed to list tasks",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
			return nil, MapError(err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return nil, fmt.Errorf("failed to scan task row: %w", err)
			}
			tasks = append(tasks, task)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating task rows: %w", err)
		}
	}

	log.Debug("listed tasks",
		slog.String("user_id", userID.String()),
		slog.Int64("total", total),
		slog.Int("count", len(tasks)))

	return &domain.TaskPage{
		Tasks: tasks,
		Meta:  domain.NewPageMeta(total, filter.Page, filter.PerPage, len(tasks)),
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		description sql.NullString
		priority    string
		dueDate     sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&task.IsCompleted,
		&priority,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	if description.Valid {
		task.Description = &description.String
	}
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		task.DueDate = &due
	}
	return &task, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/jobs"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgresJobStore implements jobs.Store on the search_sync_jobs table.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

var _ jobs.Store = (*PostgresJobStore)(nil)

// NewPostgresJobStore creates a job store on db.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SaveJob implements jobs.Store.SaveJob.
func (s *PostgresJobStore) SaveJob(ctx context.Context, job jobs.Job) error {
	query := `
		INSERT INTO search_sync_jobs (id, type, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID(),
		job.Type(),
		string(job.Payload()),
		string(jobs.StatusPending),
		s.now(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save job",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err)
		return fmt.Errorf("failed to save job to database: %w", MapError(err))
	}
	return nil
}

// MarkProcessing implements jobs.Store.MarkProcessing.
func (s *PostgresJobStore) MarkProcessing(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE search_sync_jobs
		SET status = $2, attempts = attempts + 1, updated_at = $3
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	err := s.db.QueryRowContext(ctx, query, id, string(jobs.StatusProcessing), s.now()).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: job %s", store.ErrNotFound, id)
		}
		return 0, fmt.Errorf("failed to mark job as processing: %w", MapError(err))
	}
	return attempts, nil
}

// UpdateJobStatus implements jobs.Store.UpdateJobStatus. A missing job is
// logged and ignored.
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status jobs.Status, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE search_sync_jobs
		SET status = $2, error_message = NULLIF($3, ''), updated_at = $4
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, string(status), errorMsg, s.now())
	if err != nil {
		log.Error("failed to update job status",
			"job_id", id,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update job status: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("no job found with ID to update status", "job_id", id)
			return nil
		}
		return err
	}
	return nil
}

// GetPendingJobs implements jobs.Store.GetPendingJobs.
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context, olderThan time.Duration) ([]jobs.Record, error) {
	return s.getJobsByStatus(ctx, jobs.StatusPending, olderThan)
}

// GetProcessingJobs implements jobs.Store.GetProcessingJobs.
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]jobs.Record, error) {
	return s.getJobsByStatus(ctx, jobs.StatusProcessing, olderThan)
}

func (s *PostgresJobStore) getJobsByStatus(ctx context.Context, status jobs.Status, olderThan time.Duration) ([]jobs.Record, error) {
	query := `
		SELECT id, type, payload, status, attempts, error_message, created_at, updated_at
		FROM search_sync_jobs
		WHERE status = $1 AND ($2::timestamptz IS NULL OR updated_at < $2)
		ORDER BY created_at ASC
	`
	var cutoff sql.NullTime
	if olderThan > 0 {
		cutoff = sql.NullTime{Time: s.now().Add(-olderThan), Valid: true}
	}

	rows, err := s.db.QueryContext(ctx, query, string(status), cutoff)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query jobs by status: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []jobs.Record
	for rows.Next() {
		var (
			rec       jobs.Record
			recStatus string
			errMsg    sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.Type, &rec.Payload, &recStatus, &rec.Attempts,
			&errMsg, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		rec.Status = jobs.Status(recStatus)
		rec.ErrorMessage = errMsg.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return records, nil
}

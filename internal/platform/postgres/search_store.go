package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/search"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const searchColumns = "id, user_id, title, description, is_completed, priority, due_date, created_at, updated_at"

// PostgresSearchIndex implements search.Index on the task_search_index table
// using PostgreSQL full-text search.
type PostgresSearchIndex struct {
	db     store.DBTX
	logger *slog.Logger
}

var (
	_ search.Index       = (*PostgresSearchIndex)(nil)
	_ search.DriftSource = (*PostgresSearchIndex)(nil)
)

// NewPostgresSearchIndex creates a search index on db.
func NewPostgresSearchIndex(db store.DBTX, logger *slog.Logger) *PostgresSearchIndex {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSearchIndex{
		db:     db,
		logger: logger.With(slog.String("component", "search_index")),
	}
}

// Upsert implements search.Index.Upsert.
func (s *PostgresSearchIndex) Upsert(ctx context.Context, doc search.Document) error {
	query := `
		INSERT INTO task_search_index
			(id, user_id, title, description, is_completed, priority, due_date, created_at, updated_at, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			is_completed = EXCLUDED.is_completed,
			priority = EXCLUDED.priority,
			due_date = EXCLUDED.due_date,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			indexed_at = NOW()
	`
	var due sql.NullInt64
	if doc.DueDate != nil {
		due = sql.NullInt64{Int64: *doc.DueDate, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Title,
		nullString(doc.Description),
		doc.IsCompleted,
		string(doc.Priority),
		due,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert search document",
			slog.String("error", err.Error()),
			slog.String("task_id", doc.ID.String()))
		return MapError(err)
	}
	return nil
}

// Delete implements search.Index.Delete.
func (s *PostgresSearchIndex) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM task_search_index WHERE id = $1", id); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete search document",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	return nil
}

// FindDrift implements search.DriftSource. Index timestamps are whole epoch
// seconds, so the task side is truncated the same way before comparing.
func (s *PostgresSearchIndex) FindDrift(ctx context.Context, settledBefore time.Time, limit int) ([]search.TaskRef, error) {
	query := `
		SELECT id, user_id FROM (
			SELECT t.id, t.user_id
			FROM tasks t
			LEFT JOIN task_search_index i ON i.id = t.id
			WHERE t.updated_at < $1
			  AND (i.id IS NULL OR i.updated_at < FLOOR(EXTRACT(EPOCH FROM t.updated_at))::BIGINT)
			UNION ALL
			SELECT i.id, i.user_id
			FROM task_search_index i
			WHERE i.indexed_at < $1
			  AND NOT EXISTS (SELECT 1 FROM tasks t WHERE t.id = i.id)
		) drift
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, settledBefore, limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to find index drift",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var refs []search.TaskRef
	for rows.Next() {
		var ref search.TaskRef
		if err := rows.Scan(&ref.TaskID, &ref.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan drift row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drift rows: %w", err)
	}
	return refs, nil
}

// Search implements search.Index.Search.
func (s *PostgresSearchIndex) Search(
	ctx context.Context,
	userID uuid.UUID,
	q domain.SearchQuery,
) ([]search.Document, int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	sq := buildSearchQuery(userID, q)

	var total int64
	if err := s.db.QueryRowContext(ctx, sq.count, sq.countArgs...).Scan(&total); err != nil {
		log.Error("failed to count search results",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}

	docs := make([]search.Document, 0, q.PerPage)
	if total == 0 || q.Offset() >= total {
		return docs, total, nil
	}

	rows, err := s.db.QueryContext(ctx, sq.page, sq.pageArgs...)
	if err != nil {
		log.Error("failed to search tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			doc         search.Document
			description sql.NullString
			priority    string
			due         sql.NullInt64
			rank        float64
		)
		if err := rows.Scan(
			&doc.ID, &doc.UserID, &doc.Title, &description, &doc.IsCompleted,
			&priority, &due, &doc.CreatedAt, &doc.UpdatedAt, &rank,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan search row: %w", err)
		}
		doc.Priority = domain.Priority(priority)
		if description.Valid {
			doc.Description = &description.String
		}
		if due.Valid {
			v := due.Int64
			doc.DueDate = &v
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating search rows: %w", err)
	}

	return docs, total, nil
}

// buildSearchQuery matches the text through websearch_to_tsquery, which
// accepts any input without raising a syntax error, or through a substring
// match so that fragments and punctuation still find something.
func buildSearchQuery(userID uuid.UUID, q domain.SearchQuery) taskListQuery {
	b := &queryBuilder{}
	b.and("user_id = " + b.arg(userID))

	tsq := b.arg(q.Query)
	like := b.arg(likePattern(q.Query))
	b.and(fmt.Sprintf(
		`(document @@ websearch_to_tsquery('simple', %[1]s) OR title ILIKE %[2]s ESCAPE '\' OR description ILIKE %[2]s ESCAPE '\')`,
		tsq, like))

	if q.IsCompleted != nil {
		b.and("is_completed = " + b.arg(*q.IsCompleted))
	}
	if q.Priority != nil {
		b.and("priority = " + b.arg(string(*q.Priority)))
	}

	where := b.whereSQL()
	countArgs := append([]any(nil), b.args...)
	limit := b.arg(q.PerPage)
	offset := b.arg(q.Offset())

	return taskListQuery{
		count:     "SELECT COUNT(*) FROM task_search_index " + where,
		countArgs: countArgs,
		page: fmt.Sprintf(
			"SELECT %s, ts_rank(document, websearch_to_tsquery('simple', %s)) AS rank FROM task_search_index %s "+
				"ORDER BY rank DESC, updated_at DESC, id LIMIT %s OFFSET %s",
			searchColumns, tsq, where, limit, offset),
		pageArgs: b.args,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring ILIKE with its wildcards escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

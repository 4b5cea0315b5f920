package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = "id, name, email, username, hashed_password, created_at, updated_at"

// PostgresUserStore implements store.UserStore.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a user store on db. bcryptCost is used to hash
// plaintext passwords on Create; values outside bcrypt's range fall back to
// bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "user_store")),
	}
}

// WithTx returns a store that runs on tx.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, bcryptCost: s.bcryptCost, logger: s.logger}
}

// Create implements store.UserStore.Create. The plaintext password is
// cleared once hashed.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}

	query := `
		INSERT INTO users (id, name, email, username, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Username,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("user already exists", slog.String("user_id", user.ID.String()))
			return mapUserUniqueViolation(err)
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "id", id)
}

// GetByEmail implements store.UserStore.GetByEmail. The column is citext, so
// the comparison ignores case.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getOne(ctx, "email", email)
}

// GetByUsername implements store.UserStore.GetByUsername.
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getOne(ctx, "username", username)
}

// getOne looks up a single user. column is always a constant from this file.
func (s *PostgresUserStore) getOne(ctx context.Context, column string, value any) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := "SELECT " + userColumns + " FROM users WHERE " + column + " = $1"

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Username,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user",
			slog.String("error", err.Error()),
			slog.String("lookup", column))
		return nil, MapError(err)
	}

	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

// GetSummaries implements store.UserStore.GetSummaries.
func (s *PostgresUserStore) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UserSummary, error) {
	summaries := make(map[uuid.UUID]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, username FROM users WHERE id = ANY($1::uuid[])", params)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load user summaries",
			slog.String("error", err.Error()),
			slog.Int("count", len(ids)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var summary domain.UserSummary
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.Username); err != nil {
			return nil, fmt.Errorf("failed to scan user summary: %w", err)
		}
		summaries[summary.ID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user summaries: %w", err)
	}
	return summaries, nil
}

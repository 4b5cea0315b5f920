package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	// Create saves a new user, hashing user.Password when it is set.
	// Returns ErrEmailExists or ErrUsernameExists on conflicts.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email, case-insensitively.
	// Returns ErrUserNotFound if missing.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if missing.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetSummaries returns author projections for the given IDs. Unknown IDs
	// are absent from the result.
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UserSummary, error)

	// WithTx returns a UserStore bound to tx.
	WithTx(tx *sql.Tx) UserStore
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Username string
	Password string
}

// UserService provides account operations.
type UserService interface {
	// Register creates a user. Duplicate emails and usernames are reported
	// as store.ErrEmailExists and store.ErrUsernameExists.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)

	// Authenticate resolves login, an email address or a username, and
	// checks password. Any mismatch is ErrInvalidCredentials.
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	userStore store.UserStore
	verifier  auth.PasswordVerifier
	inTx      func(ctx context.Context, fn func(ctx context.Context, users store.UserStore) error) error
	logger    *slog.Logger
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService.
func NewUserService(
	userStore store.UserStore,
	verifier auth.PasswordVerifier,
	db *sql.DB,
	logger *slog.Logger,
) (*UserServiceImpl, error) {
	switch {
	case userStore == nil:
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	case verifier == nil:
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	case db == nil:
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &UserServiceImpl{
		userStore: userStore,
		verifier:  verifier,
		logger:    logger.With(slog.String("component", "user_service")),
	}
	s.inTx = func(ctx context.Context, fn func(ctx context.Context, users store.UserStore) error) error {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return fn(ctx, s.userStore.WithTx(tx))
		})
	}
	return s, nil
}

// Register implements UserService.Register.
func (s *UserServiceImpl) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(strings.TrimSpace(in.Name), strings.TrimSpace(in.Email),
		strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context, users store.UserStore) error {
		return users.Create(ctx, user)
	})
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("registration rejected: duplicate user", slog.String("error", err.Error()))
			return nil, err
		}
		log.Error("failed to save user", slog.String("error", err.Error()))
		return nil, &UserServiceError{Operation: "register", Message: "failed to save user", Err: err}
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.Authenticate.
func (s *UserServiceImpl) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	login = strings.TrimSpace(login)

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.userStore.GetByEmail(ctx, login)
	} else {
		user, err = s.userStore.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error("failed to look up user for login", slog.String("error", err.Error()))
		return nil, &UserServiceError{Operation: "authenticate", Message: "failed to look up user", Err: err}
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrUnusableHash) {
			log.Error("login rejected: stored password hash is unusable",
				slog.String("user_id", user.ID.String()),
				slog.String("error", err.Error()))
		} else {
			log.Debug("login rejected: password mismatch", slog.String("user_id", user.ID.String()))
		}
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser implements UserService.GetUser.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, &UserServiceError{Operation: "get_user", Message: "failed to retrieve user", Err: err}
	}
	return user, nil
}

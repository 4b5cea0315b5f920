package mocks

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// MockUserStore implements store.UserStore. Without function fields it
// behaves like an in-memory store keyed by lower-cased email.
type MockUserStore struct {
	CreateFn        func(ctx context.Context, user *domain.User) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmailFn    func(ctx context.Context, email string) (*domain.User, error)
	GetByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	GetSummariesFn  func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UserSummary, error)

	mu    sync.Mutex
	Users map[string]*domain.User
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates an empty MockUserStore.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{Users: make(map[string]*domain.User)}
}

// Create implements store.UserStore. The stored hash is the plaintext
// prefixed with "hashed:".
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, exists := m.Users[key]; exists {
		return store.ErrEmailExists
	}
	for _, u := range m.Users {
		if u.Username == user.Username {
			return store.ErrUsernameExists
		}
	}
	if user.Password != "" {
		user.HashedPassword = "hashed:" + user.Password
		user.Password = ""
	}
	m.Users[key] = user
	return nil
}

// GetByID implements store.UserStore.
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

// GetByEmail implements store.UserStore.
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return m.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

// GetByUsername implements store.UserStore.
func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return m.find(func(u *domain.User) bool { return u.Username == username })
}

// GetSummaries implements store.UserStore.
func (m *MockUserStore) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.UserSummary, error) {
	if m.GetSummariesFn != nil {
		return m.GetSummariesFn(ctx, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]domain.UserSummary, len(ids))
	for _, id := range ids {
		for _, u := range m.Users {
			if u.ID == id {
				out[id] = u.Summary()
			}
		}
	}
	return out, nil
}

// WithTx returns m.
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

func (m *MockUserStore) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if match(u) {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

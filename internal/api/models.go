package api

import (
	"encoding/json"

	"github.com/phrazzld/taskflow-api/internal/api/presenter"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Name                 string `json:"name"                  validate:"required,max=255"`
	Email                string `json:"email"                 validate:"required,max=255,email"`
	Username             string `json:"username"              validate:"required,max=255,alpha_dash"`
	Password             string `json:"password"              validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// LoginRequest is the body of POST /api/auth/login. Login is an email
// address or a username.
type LoginRequest struct {
	Login    string `json:"login"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the body of POST /api/auth/refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User         *presenter.User `json:"user,omitempty"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`

	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest is the body of POST /api/tasks. Any owner field in the
// body is ignored.
type CreateTaskRequest struct {
	Title       *string         `json:"title"        validate:"required,min=1,max=255"`
	Description *string         `json:"description"`
	IsCompleted json.RawMessage `json:"is_completed"`
	Priority    *string         `json:"priority"     validate:"required,oneof=low medium high urgent"`
	DueDate     *string         `json:"due_date"     validate:"omitnil,datetime=2006-01-02 15:04:05"`
}

// UpdateTaskRequest is the body of PUT and PATCH /api/tasks/{id}. Absent
// fields are left unchanged; description and due_date may be null.
type UpdateTaskRequest struct {
	Title       *string         `json:"title"        validate:"omitnil,min=1,max=255"`
	Description *string         `json:"description"`
	IsCompleted json.RawMessage `json:"is_completed"`
	Priority    *string         `json:"priority"     validate:"omitnil,oneof=low medium high urgent"`
	DueDate     *string         `json:"due_date"     validate:"omitnil,datetime=2006-01-02 15:04:05"`
}

// TaskFilterQuery holds the raw query parameters of GET /api/tasks.
type TaskFilterQuery struct {
	IsCompleted string `json:"is_completed" validate:"omitempty,oneof=true false 1 0"`
	Priority    string `json:"priority"     validate:"omitempty,oneof=low medium high urgent"`
	DueDate     string `json:"due_date"     validate:"omitempty,datetime=2006-01-02"`
	Overdue     string `json:"overdue"      validate:"omitempty,oneof=true false 1 0"`
	Upcoming    string `json:"upcoming"     validate:"omitempty,number"`
	SortBy      string `json:"sort_by"      validate:"omitempty,oneof=created_at updated_at due_date priority is_completed"`
	SortOrder   string `json:"sort_order"   validate:"omitempty,oneof=asc desc"`
	Page        string `json:"page"         validate:"omitempty,number"`
	PerPage     string `json:"per_page"     validate:"omitempty,number"`
	Include     string `json:"include"`
}

// TaskSearchQuery holds the raw query parameters of GET /api/tasks/search.
// The query text itself is validated by the task service.
type TaskSearchQuery struct {
	Query       string `json:"query"`
	IsCompleted string `json:"is_completed" validate:"omitempty,oneof=true false 1 0"`
	Priority    string `json:"priority"     validate:"omitempty,oneof=low medium high urgent"`
	Page        string `json:"page"         validate:"omitempty,number"`
	PerPage     string `json:"per_page"     validate:"omitempty,number"`
	Include     string `json:"include"`
}

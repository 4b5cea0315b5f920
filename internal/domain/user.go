package domain

import (
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Password length limits. 72 bytes is the most bcrypt will read.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// User is an account that owns tasks.
type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	Password       string    `json:"-"` // Plaintext, only held until hashed
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserSummary is the minimal author projection attached to tasks.
type UserSummary struct {
	ID       uuid.UUID
	Name     string
	Username string
}

// NewUser creates a user with a fresh ID. The caller hashes Password before
// the user is stored.
func NewUser(name, email, username, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Username:  username,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks the user's fields. Either a plaintext password or a stored
// hash must be present.
func (u *User) Validate() error {
	errs := ValidationErrors{}
	if u.ID == uuid.Nil {
		errs.Add("id", "user ID cannot be empty")
	}

	switch {
	case u.Name == "":
		errs.Add("name", "The name field is required.")
	case utf8.RuneCountInString(u.Name) > 255:
		errs.Add("name", "The name may not be greater than 255 characters.")
	}

	switch {
	case u.Email == "":
		errs.Add("email", "The email field is required.")
	case len(u.Email) > 255 || !emailPattern.MatchString(u.Email):
		errs.Add("email", "The email must be a valid email address.")
	}

	switch {
	case u.Username == "":
		errs.Add("username", "The username field is required.")
	case len(u.Username) > 255 || !usernamePattern.MatchString(u.Username):
		errs.Add("username", "The username may only contain letters, numbers, dashes and underscores.")
	}

	switch {
	case u.Password != "" && len(u.Password) < MinPasswordLength:
		errs.Add("password", "The password must be at least 8 characters.")
	case len(u.Password) > MaxPasswordLength:
		errs.Add("password", "The password may not be greater than 72 characters.")
	case u.Password == "" && u.HashedPassword == "":
		errs.Add("password", "The password field is required.")
	}

	return errs.Err()
}

// Summary returns the author projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Username: u.Username}
}

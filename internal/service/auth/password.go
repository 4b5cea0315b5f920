package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest login password bcrypt reads in full.
const MaxPasswordBytes = 72

var (
	// ErrPasswordMismatch indicates the login password does not match the
	// user's stored hash.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrUnusableHash indicates the stored hash could not be parsed. The
	// user row needs repair; no password will ever match it.
	ErrUnusableHash = errors.New("stored password hash is unusable")
)

// PasswordVerifier checks a login password against a user's stored hash.
type PasswordVerifier interface {
	// Compare returns nil when password matches hashedPassword.
	Compare(hashedPassword, password string) error
}

// BcryptVerifier verifies login passwords against bcrypt hashes.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare returns ErrPasswordMismatch for a wrong password and
// ErrUnusableHash when hashedPassword is not a bcrypt hash. Passwords longer
// than MaxPasswordBytes never match, since registration refuses them and
// bcrypt would otherwise compare only their prefix.
func (v *BcryptVerifier) Compare(hashedPassword, password string) error {
	if len(password) > MaxPasswordBytes {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("%w: %v", ErrUnusableHash, err)
	}
}

// HashPassword hashes a login password at cost. It refuses passwords that
// bcrypt would truncate.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("password is longer than %d bytes", MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

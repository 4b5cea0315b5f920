package mocks

import "github.com/phrazzld/taskflow-api/internal/service/auth"

// ErrPasswordMismatch is returned by MockPasswordVerifier when ShouldSucceed
// is false.
var ErrPasswordMismatch = auth.ErrPasswordMismatch

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
type MockPasswordVerifier struct {
	ShouldSucceed bool
	CompareFn     func(hashedPassword, password string) error

	CompareCallCount int
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements auth.PasswordVerifier.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCallCount++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if m.ShouldSucceed {
		return nil
	}
	return ErrPasswordMismatch
}

package main

import (
	"strings"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashedPasswordsVerify(t *testing.T) {
	for _, password := range []string{"testpassword123", "test@#$%^&*()", "тест123"} {
		hash, err := auth.HashPassword(password, bcrypt.MinCost)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)))
	}

	_, err := auth.HashPassword(strings.Repeat("a", 73), bcrypt.MinCost)
	assert.Error(t, err)
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("one\n\ntwo\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

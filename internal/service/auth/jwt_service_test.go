package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-for-testing"

var fixedTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, secret string, now func() time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(secret, time.Hour, 24*time.Hour, now)
	require.NoError(t, err)
	return svc
}

func at(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{
		JWTSecret:                   "short",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 120,
	})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{
		JWTSecret:                   testSecret,
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 120,
	})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, testSecret, at(fixedTime))
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	other, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	otherClaims, err := svc.ValidateToken(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID, "each token gets its own jti")
}

func TestValidateTokenFailures(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	issuer := newTestService(t, testSecret, at(fixedTime))
	access, err := issuer.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	refresh, err := issuer.GenerateRefreshToken(context.Background(), userID)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"uid": userID.String(), "type": TokenTypeAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name      string
		validator *hmacJWTService
		token     string
		want      error
	}{
		{
			name:      "expired beyond clock skew",
			validator: newTestService(t, testSecret, at(fixedTime.Add(2*time.Hour))),
			token:     access,
			want:      ErrExpiredToken,
		},
		{
			name:      "issued in the future",
			validator: newTestService(t, testSecret, at(fixedTime.Add(-time.Hour))),
			token:     access,
			want:      ErrTokenNotYetValid,
		},
		{
			name:      "wrong secret",
			validator: newTestService(t, strings.Repeat("x", 40), at(fixedTime)),
			token:     access,
			want:      ErrInvalidToken,
		},
		{
			name:      "malformed",
			validator: issuer,
			token:     "not.a.token",
			want:      ErrInvalidToken,
		},
		{
			name:      "unsigned",
			validator: issuer,
			token:     noneToken,
			want:      ErrInvalidToken,
		},
		{
			name:      "refresh token used as access token",
			validator: issuer,
			token:     refresh,
			want:      ErrWrongTokenType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := tt.validator.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newTestService(t, testSecret, at(fixedTime))
	refresh, err := svc.GenerateRefreshToken(context.Background(), userID)
	require.NoError(t, err)
	access, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.Equal(t, fixedTime.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())

	_, err = svc.ValidateRefreshToken(context.Background(), access)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateRefreshToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	later := newTestService(t, testSecret, at(fixedTime.Add(48*time.Hour)))
	_, err = later.ValidateRefreshToken(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)
}

func TestBcryptVerifier(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{name: "matching password", hash: hash, password: "password123"},
		{name: "wrong password", hash: hash, password: "password124", wantErr: ErrPasswordMismatch},
		{name: "password past bcrypt limit", hash: hash, password: "password123" + strings.Repeat("x", MaxPasswordBytes), wantErr: ErrPasswordMismatch},
		{name: "corrupt stored hash", hash: "not-a-hash", password: "password123", wantErr: ErrUnusableHash},
	}

	verifier := NewBcryptVerifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Compare(tt.hash, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHashPasswordRejectsTruncatedInput(t *testing.T) {
	t.Parallel()

	_, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1), bcrypt.MinCost)
	assert.Error(t, err)

	hash, err := HashPassword(strings.Repeat("a", MaxPasswordBytes), bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, NewBcryptVerifier().Compare(hash, strings.Repeat("a", MaxPasswordBytes)))
}

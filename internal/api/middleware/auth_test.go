package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/mocks"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRevocation struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocation) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	validClaims := &auth.Claims{UserID: userID, TokenType: "access", ID: "jti-1"}

	tests := []struct {
		name        string
		authHeader  string
		validateErr error
		revocation  RevocationChecker
		wantStatus  int
	}{
		{name: "valid token", authHeader: "Bearer valid-token", wantStatus: http.StatusOK},
		{name: "lowercase scheme", authHeader: "bearer valid-token", wantStatus: http.StatusOK},
		{name: "missing header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", authHeader: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "empty token", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer x", validateErr: auth.ErrExpiredToken, wantStatus: http.StatusUnauthorized},
		{name: "refresh token used as access", authHeader: "Bearer x", validateErr: auth.ErrWrongTokenType, wantStatus: http.StatusUnauthorized},
		{name: "unexpected validation failure", authHeader: "Bearer x", validateErr: errors.New("boom"), wantStatus: http.StatusUnauthorized},
		{
			name:       "revoked token",
			authHeader: "Bearer valid-token",
			revocation: stubRevocation{revoked: map[string]bool{"jti-1": true}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "revocation outage fails open",
			authHeader: "Bearer valid-token",
			revocation: stubRevocation{err: errors.New("redis down")},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			jwtService := &mocks.MockJWTService{Claims: validClaims, ValidateErr: tt.validateErr}
			mw := NewAuthMiddleware(jwtService, tt.revocation, nil)

			var gotUserID uuid.UUID
			var gotClaims *auth.Claims
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = shared.UserIDFromContext(r.Context())
				gotClaims, _ = ClaimsFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			mw.Authenticate(next).ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID, gotUserID)
				assert.Same(t, validClaims, gotClaims)
			} else {
				assert.Contains(t, rr.Body.String(), msgUnauthenticated)
				assert.NotContains(t, rr.Body.String(), "boom")
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	_, ok = bearerToken("Bearerabc")
	assert.False(t, ok)
}

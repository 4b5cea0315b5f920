package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

const msgUnauthenticated = "Unauthenticated."

// RevocationChecker reports whether a token ID has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware provides bearer token authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	revocation RevocationChecker
	logger     *slog.Logger
}

// NewAuthMiddleware creates an AuthMiddleware. revocation may be nil, in
// which case logged-out tokens stay valid until they expire.
func NewAuthMiddleware(jwtService auth.JWTService, revocation RevocationChecker, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		revocation: revocation,
		logger:     logger.With(slog.String("component", "auth_middleware")),
	}
}

// Authenticate validates the bearer token and stores the principal and the
// token claims in the request context. Every failure is a 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContextOrDefault(r.Context(), m.logger)

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			if !isTokenError(err) {
				log.Error("failed to validate token", slog.String("error", redact.Error(err)))
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		if m.revocation != nil && claims.ID != "" {
			revoked, err := m.revocation.IsRevoked(r.Context(), claims.ID)
			switch {
			case err != nil:
				log.Warn("revocation check failed, accepting token",
					slog.String("error", redact.Error(err)))
			case revoked:
				shared.RespondWithError(w, r, http.StatusUnauthorized, msgUnauthenticated)
				return
			}
		}

		ctx := shared.WithUserID(r.Context(), claims.UserID)
		ctx = context.WithValue(ctx, shared.TokenClaimsContextKey, claims)
		ctx = logger.WithLogger(ctx, log.With(slog.String("user_id", claims.UserID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(shared.TokenClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, auth.ErrTokenNotYetValid) ||
		errors.Is(err, auth.ErrWrongTokenType)
}

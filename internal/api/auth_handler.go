package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/presenter"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const tokenTypeBearer = "Bearer"

// TokenRevoker records tokens that must no longer be accepted.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

var (
	registerRules = shared.Rules{
		Attributes: map[string]string{"password_confirmation": "password"},
	}
	loginRules = shared.Rules{}
)

// AuthHandler serves registration, login, token refresh and logout.
type AuthHandler struct {
	userService   service.UserService
	jwtService    auth.JWTService
	revoker       TokenRevoker
	presenter     *presenter.Presenter
	tokenLifetime time.Duration
	clock         domain.Clock
	logger        *slog.Logger
}

// AuthHandlerOption configures optional collaborators of an AuthHandler.
type AuthHandlerOption func(*AuthHandler)

// WithTokenRevoker enables logout revocation and refresh token rotation.
// Without one, logout only acknowledges the request.
func WithTokenRevoker(revoker TokenRevoker) AuthHandlerOption {
	return func(h *AuthHandler) { h.revoker = revoker }
}

// WithAuthClock replaces the clock used to compute token expiry.
func WithAuthClock(clock domain.Clock) AuthHandlerOption {
	return func(h *AuthHandler) { h.clock = clock }
}

// NewAuthHandler creates an AuthHandler. tokenLifetime must match the
// lifetime the JWT service signs access tokens with.
func NewAuthHandler(
	userService service.UserService,
	jwtService auth.JWTService,
	tokenLifetime time.Duration,
	loc *time.Location,
	logger *slog.Logger,
	opts ...AuthHandlerOption,
) *AuthHandler {
	if userService == nil || jwtService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("userService and jwtService cannot be nil for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &AuthHandler{
		userService:   userService,
		jwtService:    jwtService,
		presenter:     presenter.New(loc),
		tokenLifetime: tokenLifetime,
		clock:         domain.SystemClock,
		logger:        logger.With(slog.String("component", "auth_handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if _, err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req, registerRules).Err(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, err := h.userService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	resp, err := h.issueTokens(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	u := h.presenter.User(user)
	resp.User = &u

	logger.FromContextOrDefault(r.Context(), h.logger).Info("user registered",
		slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login. Unknown logins and wrong passwords
// produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if _, err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req, loginRules).Err(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), strings.TrimSpace(req.Login), req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	resp, err := h.issueTokens(r.Context(), user.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	u := h.presenter.User(user)
	resp.User = &u
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RefreshToken handles POST /api/auth/refresh. With a revoker configured the
// presented refresh token is single use.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RefreshTokenRequest
	if _, err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := shared.ValidateRequest(&req, shared.Rules{}).Err(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, auth.ErrExpiredRefreshToken) && !errors.Is(err, auth.ErrWrongTokenType) {
			err = errors.Join(auth.ErrInvalidRefreshToken, err)
		}
		log.Debug("refresh token rejected", slog.String("error", err.Error()))
		HandleAPIError(w, r, err, "")
		return
	}

	if h.revoker != nil && claims.ID != "" {
		revoked, err := h.revoker.IsRevoked(r.Context(), claims.ID)
		switch {
		case err != nil:
			log.Warn("revocation check failed, accepting refresh token", slog.String("error", err.Error()))
		case revoked:
			HandleAPIError(w, r, errors.Join(auth.ErrInvalidRefreshToken, auth.ErrRevokedToken), "")
			return
		}
	}

	if _, err := h.userService.GetUser(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			err = fmt.Errorf("%w: user no longer exists", auth.ErrInvalidRefreshToken)
		}
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	resp, err := h.issueTokens(r.Context(), claims.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}
	h.revoke(r.Context(), claims)
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout by revoking the presented access
// token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := handleUserID(w, r, h.logger); !ok {
		return
	}
	if claims, ok := r.Context().Value(shared.TokenClaimsContextKey).(*auth.Claims); ok {
		h.revoke(r.Context(), claims)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{Message: MsgLoggedOut})
}

// Me handles GET /api/user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := handleUserID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// The token outlived its user.
			err = fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
		}
		HandleAPIError(w, r, err, "Failed to get user")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, presenter.Envelope[presenter.User]{Data: h.presenter.User(user)})
}

func (h *AuthHandler) issueTokens(ctx context.Context, userID uuid.UUID) (*AuthResponse, error) {
	access, err := h.jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwtService.GenerateRefreshToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresAt:    h.clock().Add(h.tokenLifetime).UTC().Format(time.RFC3339),
	}, nil
}

// revoke is best effort: a failure is logged and the token simply lives
// until it expires.
func (h *AuthHandler) revoke(ctx context.Context, claims *auth.Claims) {
	if h.revoker == nil || claims == nil || claims.ID == "" {
		return
	}
	if err := h.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		logger.FromContextOrDefault(ctx, h.logger).Warn("failed to revoke token",
			slog.String("token_type", claims.TokenType),
			slog.String("error", err.Error()))
	}
}

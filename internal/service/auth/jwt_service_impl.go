package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// hmacJWTService implements JWTService with HMAC-SHA256 signatures.
type hmacJWTService struct {
	signingKey           []byte
	tokenLifetime        time.Duration
	refreshTokenLifetime time.Duration
	timeFunc             func() time.Time
	clockSkew            time.Duration
}

type jwtCustomClaims struct {
	UserID    uuid.UUID `json:"uid"`
	TokenType string    `json:"type"`
	jwt.RegisteredClaims
}

var _ JWTService = (*hmacJWTService)(nil)

// NewJWTService creates a JWT service from the auth configuration.
func NewJWTService(cfg config.AuthConfig) (JWTService, error) {
	return newHMACJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.TokenLifetimeMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenLifetimeMinutes)*time.Minute,
		time.Now,
	)
}

func newHMACJWTService(
	secret string,
	accessLifetime, refreshLifetime time.Duration,
	timeFunc func() time.Time,
) (*hmacJWTService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if accessLifetime <= 0 || refreshLifetime <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	return &hmacJWTService{
		signingKey:           []byte(secret),
		tokenLifetime:        accessLifetime,
		refreshTokenLifetime: refreshLifetime,
		timeFunc:             timeFunc,
		clockSkew:            2 * time.Minute,
	}, nil
}

// GenerateToken implements JWTService.GenerateToken.
func (s *hmacJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.sign(ctx, userID, TokenTypeAccess, s.timeFunc().Add(s.tokenLifetime))
}

// GenerateRefreshToken implements JWTService.GenerateRefreshToken.
func (s *hmacJWTService) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	return s.sign(ctx, userID, TokenTypeRefresh, s.timeFunc().Add(s.refreshTokenLifetime))
}

// ValidateToken implements JWTService.ValidateToken.
func (s *hmacJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parse(ctx, tokenString, TokenTypeAccess)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, ErrWrongTokenType):
			return nil, ErrWrongTokenType
		default:
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// ValidateRefreshToken implements JWTService.ValidateRefreshToken.
func (s *hmacJWTService) ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.parse(ctx, tokenString, TokenTypeRefresh)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredRefreshToken
		case errors.Is(err, ErrWrongTokenType):
			return nil, ErrWrongTokenType
		default:
			return nil, ErrInvalidRefreshToken
		}
	}
	return claims, nil
}

func (s *hmacJWTService) sign(ctx context.Context, userID uuid.UUID, tokenType string, expiresAt time.Time) (string, error) {
	now := s.timeFunc()
	claims := jwtCustomClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		logger.FromContext(ctx).Error("failed to sign token",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("token_type", tokenType))
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// parse verifies signature, time claims and token type. Errors from the jwt
// package are returned as is for the caller to classify.
func (s *hmacJWTService) parse(ctx context.Context, tokenString, wantType string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		log.Debug("token validation failed",
			slog.String("error", err.Error()),
			slog.String("token_type", wantType))
		return nil, err
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != wantType {
		log.Debug("token validation failed: wrong token type",
			slog.String("expected", wantType),
			slog.String("actual", claims.TokenType))
		return nil, ErrWrongTokenType
	}

	return &Claims{
		UserID:    claims.UserID,
		TokenType: claims.TokenType,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTService issues and validates signed access and refresh tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for userID.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken checks an access token and returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateRefreshToken creates a signed refresh token for userID.
	GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateRefreshToken checks a refresh token and returns its claims.
	ValidateRefreshToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of a token.
type Claims struct {
	UserID    uuid.UUID `json:"uid,omitempty"`
	TokenType string    `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

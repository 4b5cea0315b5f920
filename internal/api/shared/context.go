package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ContextKey is the type of request context keys set by this package.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated principal's uuid.UUID.
	UserIDContextKey ContextKey = "userID"

	// TokenClaimsContextKey holds the *auth.Claims of the bearer token.
	TokenClaimsContextKey ContextKey = "tokenClaims"

	// TraceIDKey holds the request's trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID.
	TraceIDLength = 16
)

// SetTraceID returns ctx carrying a fresh trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID returns the trace ID in ctx, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithUserID returns ctx carrying the authenticated principal.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authenticated principal, if any.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// generateTraceID returns 32 hex characters. If crypto/rand fails it falls
// back to a time-derived ID rather than a constant.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if n, err := rand.Read(b); err != nil || n != TraceIDLength {
		slog.Error("failed to generate random trace ID, using time-based fallback",
			slog.Any("error", err),
			slog.Int("bytes_read", n))
		return fallbackTraceID(time.Now())
	}
	return hex.EncodeToString(b)
}

func fallbackTraceID(now time.Time) string {
	b := make([]byte, TraceIDLength)
	binary.BigEndian.PutUint64(b[:8], uint64(now.UnixNano()))
	binary.BigEndian.PutUint64(b[8:], uint64(now.Unix())^uint64(now.Nanosecond())<<17)
	return hex.EncodeToString(b)
}

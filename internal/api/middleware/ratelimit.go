package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/platform/redis"
	"github.com/phrazzld/taskflow-api/internal/redact"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*redis.RateLimitResult, error)
}

// RateLimit returns middleware that throttles requests per principal, or per
// client IP for unauthenticated requests. Limiter errors let the request
// through.
func RateLimit(limiter Limiter, base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.Allow(r.Context(), rateLimitKey(r))
			if err != nil {
				logger.FromContextOrDefault(r.Context(), base).Warn("rate limiter unavailable, allowing request",
					slog.String("error", redact.Error(err)))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
				shared.RespondWithError(w, r, http.StatusTooManyRequests, "Too Many Attempts.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if userID, ok := shared.UserIDFromContext(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

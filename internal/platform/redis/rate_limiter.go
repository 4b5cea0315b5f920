package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// slidingWindowScript trims the window, counts what is left and records the
// request if there is room. It returns {allowed, remaining, retry_after_ms}.
var slidingWindowScript = goredis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local count = redis.call('ZCARD', key)

	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local retry_after = window_ms
	if #oldest >= 2 then
		retry_after = tonumber(oldest[2]) + window_ms - now
	end
	return {0, 0, retry_after}
`)

// RateLimitResult describes one limiter decision.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// SlidingWindowLimiter allows at most limit requests per key within any
// window-long interval.
type SlidingWindowLimiter struct {
	client goredis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewSlidingWindowLimiter creates a limiter. Non-positive arguments fall back
// to 60 requests per minute.
func NewSlidingWindowLimiter(client goredis.Scripter, limit int, window time.Duration) *SlidingWindowLimiter {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &SlidingWindowLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow records a request for key and reports whether it fits the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	now := l.now()
	nowMs := now.UnixMilli()
	windowMs := l.window.Milliseconds()

	raw, err := slidingWindowScript.Run(ctx, l.client,
		[]string{KeyPrefix + "ratelimit:" + key},
		nowMs,
		nowMs-windowMs,
		l.limit,
		windowMs,
		fmt.Sprintf("%d-%s", nowMs, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("unexpected rate limit result length: %d", len(raw))
	}

	result := &RateLimitResult{
		Allowed:   raw[0] == 1,
		Limit:     l.limit,
		Remaining: int(raw[1]),
		ResetAt:   now.Add(l.window),
	}
	if !result.Allowed {
		result.RetryAfter = time.Duration(raw[2]) * time.Millisecond
		result.ResetAt = now.Add(result.RetryAfter)
	}
	return result, nil
}

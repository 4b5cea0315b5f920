package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// generationTTL bounds how long an idle owner's generation counter lives. It
// must outlive any cached page.
const generationTTL = 24 * time.Hour

// TaskListCache caches pages of an owner's task listing. Keys embed the
// owner's generation counter, which every write bumps, so a write makes all
// of the owner's cached pages unreachable at once.
type TaskListCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewTaskListCache creates a cache whose pages expire after ttl.
func NewTaskListCache(client goredis.Cmdable, ttl time.Duration, logger *slog.Logger) *TaskListCache {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskListCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "task_list_cache")),
	}
}

// Generation returns the owner's current generation; zero if none exists.
func (c *TaskListCache) Generation(ctx context.Context, userID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

// Bump advances the owner's generation.
func (c *TaskListCache) Bump(ctx context.Context, userID uuid.UUID) error {
	key := generationKey(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache bump error: %w", err)
	}
	return nil
}

// GetList returns the cached page for filter at generation gen. The boolean
// is false on a miss.
func (c *TaskListCache) GetList(
	ctx context.Context,
	userID uuid.UUID,
	gen int64,
	filter domain.TaskFilter,
) (*domain.TaskPage, bool, error) {
	data, err := c.client.Get(ctx, ListKey(userID, gen, filter)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var page domain.TaskPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable cache entry",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, false, nil
	}
	return &page, true, nil
}

// SetList stores page for filter at generation gen.
func (c *TaskListCache) SetList(
	ctx context.Context,
	userID uuid.UUID,
	gen int64,
	filter domain.TaskFilter,
	page *domain.TaskPage,
) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("cache encode error: %w", err)
	}
	if err := c.client.Set(ctx, ListKey(userID, gen, filter), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func generationKey(userID uuid.UUID) string {
	return KeyPrefix + "tasks:" + userID.String() + ":gen"
}

// ListKey is the cache key of one listing page. IncludeAuthor is not part of
// the key since authors are attached after the cache.
func ListKey(userID uuid.UUID, gen int64, filter domain.TaskFilter) string {
	return KeyPrefix + "tasks:" + userID.String() + ":" + strconv.FormatInt(gen, 10) + ":" + filterHash(filter)
}

func filterHash(f domain.TaskFilter) string {
	parts := []string{
		"completed=" + optional(f.IsCompleted, strconv.FormatBool),
		"priority=" + optional(f.Priority, func(p domain.Priority) string { return string(p) }),
		"due=" + optional(f.DueOn, func(t time.Time) string { return strconv.FormatInt(t.Unix(), 10) }),
		"overdue=" + optional(f.Overdue, strconv.FormatBool),
		"upcoming=" + optional(f.UpcomingDays, strconv.Itoa),
		"sort=" + string(f.SortBy) + ":" + string(f.SortOrder),
		"page=" + strconv.Itoa(f.Page),
		"per_page=" + strconv.Itoa(f.PerPage),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:12])
}

func optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}

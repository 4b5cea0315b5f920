package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "taskflow:"

// Open parses url, connects and pings the server.
func Open(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

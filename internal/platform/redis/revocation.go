package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TokenRevocationList remembers revoked token IDs until the tokens expire.
type TokenRevocationList struct {
	client goredis.Cmdable
	now    func() time.Time
}

// NewTokenRevocationList creates a revocation list on client.
func NewTokenRevocationList(client goredis.Cmdable) *TokenRevocationList {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &TokenRevocationList{client: client, now: time.Now}
}

// Revoke marks jti as revoked until expiresAt. Already expired tokens are
// not recorded.
func (r *TokenRevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (r *TokenRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

func revokedKey(jti string) string {
	return KeyPrefix + "revoked:" + jti
}

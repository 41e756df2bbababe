package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the shared denylist of token identifiers (jti).
type RevocationStore interface {
	// Revoke marks jti as revoked for ttl. Revoking twice is not an error.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether jti has a live entry.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationStore keeps revoked jtis as empty keys with an expiry.
type RedisRevocationStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRevocationStore wraps a go-redis client. Keys are prefix+jti.
func NewRedisRevocationStore(client redis.Cmdable, prefix string) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: prefix}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("revoke: empty jti")
	}
	if ttl <= 0 {
		return fmt.Errorf("revoke: non-positive ttl %s", ttl)
	}
	if err := s.client.Set(ctx, s.prefix+jti, "", ttl).Err(); err != nil {
		return fmt.Errorf("revoke jti: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("lookup jti: %w", err)
	}
	return n > 0, nil
}

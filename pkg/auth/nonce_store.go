package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore holds one outstanding login nonce per address.
type NonceStore interface {
	Put(ctx context.Context, address, nonce string, ttl time.Duration) error
	// Take returns and deletes the nonce, or "" when none is outstanding.
	Take(ctx context.Context, address string) (string, error)
}

type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func nonceKey(address string) string {
	return "auth:nonce:" + strings.ToLower(address)
}

func (s *RedisNonceStore) Put(ctx context.Context, address, nonce string, ttl time.Duration) error {
	return s.client.Set(ctx, nonceKey(address), nonce, ttl).Err()
}

func (s *RedisNonceStore) Take(ctx context.Context, address string) (string, error) {
	val, err := s.client.GetDel(ctx, nonceKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore maps an Idempotency-Key to the reservation it created.
type IdempotencyStore interface {
	// Get returns "" when the key has not been seen.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, reservationID string, ttl time.Duration) error
}

// RedisIdempotencyStore is the fast path in front of the unique index on
// rental_reservations.idempotency_key.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) key(key string) string {
	return "idem:rental:" + key
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key, reservationID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), reservationID, ttl).Err()
}

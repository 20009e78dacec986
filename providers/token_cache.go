package providers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const courierTokenKey = "courier:shiprocket:token"

// RedisTokenCache shares the courier token across service instances.
type RedisTokenCache struct {
	client *redis.Client
}

func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context) (string, error) {
	tok, err := c.client.Get(ctx, courierTokenKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	return tok, err
}

func (c *RedisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, courierTokenKey, token, ttl).Err()
}

func (c *RedisTokenCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, courierTokenKey).Err()
}

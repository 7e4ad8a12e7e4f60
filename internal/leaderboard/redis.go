package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "plasticboy:leaderboard"

// RedisCache stores the serialized leaderboard under a single key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) (Leaderboard, bool, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Leaderboard{}, false, nil
	}
	if err != nil {
		return Leaderboard{}, false, err
	}
	var lb Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return Leaderboard{}, false, err
	}
	return lb, true, nil
}

func (c *RedisCache) Set(ctx context.Context, lb Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey, data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, cacheKey).Err()
}

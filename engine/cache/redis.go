package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatstack/intentd/engine/decision"
)

const redisKeyPrefix = "intentd:decision:"

// RedisCache backs the decision cache with Redis so replays survive
// process restarts and are shared across gateway replicas. TTL handling
// is delegated to Redis key expiry.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %v", ttl)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key Key) (*decision.Decision, bool, error) {
	if !key.Valid() {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, redisKeyPrefix+key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached decision: %w", err)
	}
	var d decision.Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached decision: %w", err)
	}
	return &d, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key Key, d *decision.Decision) error {
	if !key.Valid() || d == nil {
		return nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key.String(), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cached decision: %w", err)
	}
	return nil
}

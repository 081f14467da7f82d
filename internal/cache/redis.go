package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/persistence"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is persistence.ErrNoValue so the adapter can tell a missing
// cart from a broken connection.
var ErrCacheMiss = persistence.ErrNoValue

// Abandoned carts expire after about a month.
const baseTTL = 30 * 24 * time.Hour

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCache stores each cart slot as a JSON string under "cart:<key>".
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r RedisCache) Set(ctx context.Context, key string, value []byte) error {
	jitter := time.Duration(rand.Intn(12)) * time.Hour
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, cacheKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func cacheKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}

package tracks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const archiveKeyPrefix = "dissector:archive:"

// RedisCache is an ArchiveCache shared between instances through Redis.
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache returns a cache backed by client.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements ArchiveCache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements ArchiveCache.Set. A ttl <= 0 stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, redisKey(key), data, ttl).Err()
}

// URLs can be long and contain anything; hash them into a fixed key.
func redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return archiveKeyPrefix + hex.EncodeToString(sum[:])
}

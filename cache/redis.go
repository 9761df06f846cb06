package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis under "<namespace>:<bucket>:<key>".
//
// Values are JSON encoded, so a cached value comes back in its decoded JSON
// form (objects as map[string]any, arrays as []any, numbers as float64).
// Responses decoded from JSON APIs round-trip unchanged.
//
// The namespace isolates one client's entries from every other client using
// the same Redis database.
type RedisCache struct {
	client    redis.UniversalClient
	namespace string
	scanCount int64
}

// NewRedisCache wraps an existing Redis client. The caller keeps ownership
// of client; several caches may share it.
func NewRedisCache(client redis.UniversalClient, namespace string) (*RedisCache, error) {
	if client == nil {
		return nil, ErrNilCache
	}
	if err := ValidateKey(namespace); err != nil {
		return nil, fmt.Errorf("redis namespace: %w", err)
	}
	return &RedisCache{client: client, namespace: namespace, scanCount: 100}, nil
}

// Namespace returns the key namespace of this cache.
func (c *RedisCache) Namespace() string {
	return c.namespace
}

func (c *RedisCache) key(bucket, key string) string {
	return c.namespace + ":" + bucket + ":" + key
}

// Get retrieves a value. Returns (nil, false) on miss, expiry or any Redis
// failure.
func (c *RedisCache) Get(ctx context.Context, bucket, key string) (any, bool) {
	data, err := c.client.Get(ctx, c.key(bucket, key)).Bytes()
	if err != nil {
		return nil, false
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return value, true
}

// Set stores a JSON encoded value with the given TTL. TTL <= 0 stores nothing.
func (c *RedisCache) Set(ctx context.Context, bucket, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return c.client.Set(ctx, c.key(bucket, key), data, ttl).Err()
}

// Delete removes one entry.
func (c *RedisCache) Delete(ctx context.Context, bucket, key string) error {
	return c.client.Del(ctx, c.key(bucket, key)).Err()
}

// Clear removes every entry of bucket using SCAN, deleting in batches.
func (c *RedisCache) Clear(ctx context.Context, bucket string) error {
	pattern := escapeGlob(c.namespace+":"+bucket+":") + "*"
	iter := c.client.Scan(ctx, 0, pattern, c.scanCount).Iterator()

	keys := make([]string, 0, c.scanCount)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if int64(len(keys)) >= c.scanCount {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}

var _ Cache = (*RedisCache)(nil)

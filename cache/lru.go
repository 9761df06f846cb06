package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const bucketSep = "\x00"

// LRUCache is a size-bounded in-memory cache. When Policy.MaxEntries is
// reached the least recently used entry is evicted, whatever its bucket.
type LRUCache struct {
	entries *lru.Cache[string, cacheEntry]
	now     func() time.Time
}

// NewLRUCache creates a bounded cache holding at most policy.MaxEntries
// entries.
func NewLRUCache(policy Policy, opts ...Option) (*LRUCache, error) {
	o := buildOptions(opts)
	entries, err := lru.New[string, cacheEntry](policy.maxEntries())
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries, now: o.now}, nil
}

func lruKey(bucket, key string) string {
	return bucket + bucketSep + key
}

// Get retrieves a value. Returns (nil, false) on miss or expiry.
func (c *LRUCache) Get(_ context.Context, bucket, key string) (any, bool) {
	k := lruKey(bucket, key)
	entry, ok := c.entries.Get(k)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.entries.Remove(k)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with the given TTL. TTL <= 0 stores nothing.
func (c *LRUCache) Set(_ context.Context, bucket, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.entries.Add(lruKey(bucket, key), cacheEntry{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}

// Delete removes one entry.
func (c *LRUCache) Delete(_ context.Context, bucket, key string) error {
	c.entries.Remove(lruKey(bucket, key))
	return nil
}

// Clear removes every entry of bucket.
func (c *LRUCache) Clear(_ context.Context, bucket string) error {
	prefix := bucket + bucketSep
	for _, k := range c.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.entries.Remove(k)
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (c *LRUCache) Len() int {
	return c.entries.Len()
}

var _ Cache = (*LRUCache)(nil)

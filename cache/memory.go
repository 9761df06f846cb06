package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-memory bucketed cache.
//
// Expired entries are dropped lazily on lookup. With Policy.SweepInterval set,
// a background goroutine also drops them periodically; call Close to stop it.
type MemoryCache struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*cacheEntry
	policy  Policy
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Option configures a cache backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the time source used for expiry. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy, opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	c := &MemoryCache{
		buckets: make(map[string]map[string]*cacheEntry),
		policy:  policy,
		now:     o.now,
	}
	if policy.SweepInterval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.sweepLoop(policy.SweepInterval)
	}
	return c
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, bucket, key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.buckets[bucket][key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.buckets[bucket][key]; ok && cur == entry {
			delete(c.buckets[bucket], key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with the given TTL. TTL <= 0 stores nothing.
func (c *MemoryCache) Set(_ context.Context, bucket, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	b, ok := c.buckets[bucket]
	if !ok {
		b = make(map[string]*cacheEntry)
		c.buckets[bucket] = b
	}
	b[key] = &cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes one entry.
func (c *MemoryCache) Delete(_ context.Context, bucket, key string) error {
	c.mu.Lock()
	delete(c.buckets[bucket], key)
	c.mu.Unlock()
	return nil
}

// Clear removes every entry of bucket.
func (c *MemoryCache) Clear(_ context.Context, bucket string) error {
	c.mu.Lock()
	delete(c.buckets, bucket)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, b := range c.buckets {
		n += len(b)
	}
	return n
}

// Sweep drops every expired entry and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, b := range c.buckets {
		for key, entry := range b {
			if !now.Before(entry.expiresAt) {
				delete(b, key)
				removed++
			}
		}
		if len(b) == 0 {
			delete(c.buckets, name)
		}
	}
	return removed
}

// Close stops the background sweeper, if any. Safe to call more than once.
func (c *MemoryCache) Close() error {
	if c.stop == nil {
		return nil
	}
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
	return nil
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

var _ Cache = (*MemoryCache)(nil)

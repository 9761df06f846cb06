package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxEntries = 2
	c, err := NewLRUCache(policy)
	if err != nil {
		t.Fatalf("NewLRUCache() error = %v", err)
	}
	ctx := context.Background()

	_ = c.Set(ctx, "b", "a", 1, time.Minute)
	_ = c.Set(ctx, "b", "b", 2, time.Minute)
	_, _ = c.Get(ctx, "b", "a")
	_ = c.Set(ctx, "other", "c", 3, time.Minute)

	if _, ok := c.Get(ctx, "b", "b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get(ctx, "b", "a"); !ok {
		t.Error("recently used entry should be kept")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c, err := NewLRUCache(DefaultPolicy(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLRUCache() error = %v", err)
	}
	ctx := context.Background()

	_ = c.Set(ctx, "b", "k", "v", time.Second)
	clock.Advance(time.Second)
	if _, ok := c.Get(ctx, "b", "k"); ok {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestLRUCache_ClearKeepsPrefixSiblings(t *testing.T) {
	c, _ := NewLRUCache(DefaultPolicy())
	ctx := context.Background()

	_ = c.Set(ctx, "api.info", "k", 1, time.Minute)
	_ = c.Set(ctx, "api.info2", "k", 2, time.Minute)

	_ = c.Clear(ctx, "api.info")
	if _, ok := c.Get(ctx, "api.info2", "k"); !ok {
		t.Error("Clear should only drop the exact bucket")
	}
}

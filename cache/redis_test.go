package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewRedisCache_Validation(t *testing.T) {
	if _, err := NewRedisCache(nil, "ns"); !errors.Is(err, ErrNilCache) {
		t.Errorf("NewRedisCache(nil) error = %v, want ErrNilCache", err)
	}
	_, client := newTestRedis(t)
	if _, err := NewRedisCache(client, ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("NewRedisCache(empty namespace) error = %v, want ErrInvalidKey", err)
	}
}

func TestRedisCache_ExpiryAndJSON(t *testing.T) {
	mr, client := newTestRedis(t)
	c, err := NewRedisCache(client, "inst")
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	ctx := context.Background()

	value := map[string]any{"ip": "8.8.8.8", "ports": []any{53.0, 443.0}}
	if err := c.Set(ctx, "shodan.host", "fp", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("inst:shodan.host:fp") {
		t.Fatalf("expected namespaced key, have %v", mr.Keys())
	}

	got, ok := c.Get(ctx, "shodan.host", "fp")
	if !ok {
		t.Fatal("Get() should hit")
	}
	m, isMap := got.(map[string]any)
	if !isMap || m["ip"] != "8.8.8.8" {
		t.Errorf("Get() = %#v", got)
	}

	mr.FastForward(time.Minute)
	if _, ok := c.Get(ctx, "shodan.host", "fp"); ok {
		t.Error("Get() after TTL should miss")
	}
}

func TestRedisCache_NamespaceIsolation(t *testing.T) {
	_, client := newTestRedis(t)
	a, _ := NewRedisCache(client, "client-a")
	b, _ := NewRedisCache(client, "client-b")
	ctx := context.Background()

	_ = a.Set(ctx, "api.info", "k", "from-a", time.Minute)
	if _, ok := b.Get(ctx, "api.info", "k"); ok {
		t.Error("entries must not leak across namespaces")
	}

	_ = b.Set(ctx, "api.info", "k", "from-b", time.Minute)
	_ = a.Clear(ctx, "api.info")
	if got, ok := b.Get(ctx, "api.info", "k"); !ok || got != "from-b" {
		t.Errorf("Clear in one namespace affected another: %v, %v", got, ok)
	}
}

func TestRedisCache_ClearManyKeys(t *testing.T) {
	mr, client := newTestRedis(t)
	c, _ := NewRedisCache(client, "inst")
	c.scanCount = 7
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_ = c.Set(ctx, "api.dns", fmt.Sprintf("k%d", i), i, time.Minute)
	}
	_ = c.Set(ctx, "api.dns*", "k", "glob", time.Minute)

	if err := c.Clear(ctx, "api.dns"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "inst:api.dns*:k" {
		t.Errorf("remaining keys = %v, want only the glob-named bucket", keys)
	}
}

func TestRedisCache_Unencodable(t *testing.T) {
	_, client := newTestRedis(t)
	c, _ := NewRedisCache(client, "inst")
	err := c.Set(context.Background(), "b", "k", make(chan int), time.Minute)
	if !errors.Is(err, ErrUnencodable) {
		t.Errorf("Set() error = %v, want ErrUnencodable", err)
	}
}

func TestRedisCache_Ping(t *testing.T) {
	mr, client := newTestRedis(t)
	c, _ := NewRedisCache(client, "inst")
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	mr.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("Ping() after server shutdown should fail")
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/observe"
	"github.com/jonwraymond/apicall/transport"
)

func TestNewClient(t *testing.T) {
	if _, err := NewClient(nil, nil); !errors.Is(err, ErrNilClass) {
		t.Errorf("NewClient(nil) error = %v, want ErrNilClass", err)
	}

	bad := NewClass("bad")
	_ = bad.Register(Spec{Name: "a", Invalidates: []string{"b"}, Handler: noop})
	if _, err := NewClient(bad, nil); !errors.Is(err, ErrUnknownInvalidation) {
		t.Errorf("NewClient(bad) error = %v, want ErrUnknownInvalidation", err)
	}

	c, err := NewClient(NewClass("empty"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := uuid.Parse(c.InstanceID()); err != nil {
		t.Errorf("InstanceID() = %q, not a UUID", c.InstanceID())
	}
	if !c.CacheEnabled() || !c.ThrottlingEnabled() || c.Public() {
		t.Error("unexpected default toggles")
	}
	if _, ok := c.Cache().(*cache.MemoryCache); !ok {
		t.Errorf("default cache = %T, want *cache.MemoryCache", c.Cache())
	}
}

func TestClient_CheckAPIKey(t *testing.T) {
	c, err := NewClient(NewClass("keys"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	err = c.CheckAPIKey("")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != 401 || apiErr.Message != "missing API key" {
		t.Fatalf("CheckAPIKey() = %v, want 401 missing API key", err)
	}
	if !errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrRemote) {
		t.Errorf("CheckAPIKey() error classification wrong: %v", err)
	}
	if err := c.CheckAPIKey("missing hibp-api-key"); err.Error() != "missing hibp-api-key (401)" {
		t.Errorf("CheckAPIKey(msg) = %q", err.Error())
	}

	keyed, _ := NewClient(NewClass("keys"), nil, WithAPIKey("secret"))
	defer keyed.Close()
	if err := keyed.CheckAPIKey(""); err != nil || keyed.APIKey() != "secret" {
		t.Errorf("CheckAPIKey() with key = %v", err)
	}
}

func TestClient_Send(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := &fakeTransport{}
	class := newTestClass("sender", clock, WithRequestThrottle(Throttle{Period: time.Second, Requests: 2}))
	c := newTestClient(t, class, tr, clock)

	for _, path := range []string{"/a", "/b", "/c"} {
		resp, err := c.Send(ctx, transport.Request{Path: path})
		if err != nil {
			t.Fatalf("Send(%s) error = %v", path, err)
		}
		if c.LastResponse() != resp {
			t.Errorf("LastResponse() is not the response of %s", path)
		}
	}
	if slept := clock.Slept(); len(slept) != 1 {
		t.Errorf("slept = %v, want one wait before the third request", slept)
	}

	c.SetThrottling(false)
	_, _ = c.Send(ctx, transport.Request{Path: "/d"})
	if len(clock.Slept()) != 1 {
		t.Error("Send waited with throttling disabled")
	}

	noTransport := newTestClient(t, class, nil, clock)
	if _, err := noTransport.Send(ctx, transport.Request{}); !errors.Is(err, ErrNoTransport) {
		t.Errorf("Send() error = %v, want ErrNoTransport", err)
	}
}

func TestClient_ConcurrentCallsSeeTheirOwnResponse(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	tr := &fakeTransport{}
	class := newTestClass("concurrent", clock)
	mustRegister(t, class, Spec{Name: "get", Handler: func(ctx context.Context, c *Client, args Args) (any, error) {
		path, _ := args.String(0)
		_, err := c.Send(ctx, transport.Request{Path: path})
		return nil, err
	}})
	c := newTestClient(t, class, tr, clock, WithDisableCache(true))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		path := "/p" + strings.Repeat("x", i%5)
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Call(ctx, "get", path)
			if err != nil {
				errs <- err
				return
			}
			if body := got.(map[string]any); body["path"] != path {
				errs <- errors.New("got the response of " + body["path"].(string) + " for " + path)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

type closingCache struct {
	cache.Nop
	closed bool
}

func (c *closingCache) Close() error {
	c.closed = true
	return nil
}

func TestClient_CacheOwnership(t *testing.T) {
	var gotID string
	owned := &closingCache{}
	c, err := NewClient(NewClass("owned"), nil, WithInstanceID("fixed"), WithCacheFactory(func(id string) (cache.Cache, error) {
		gotID = id
		return owned, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	if gotID != "fixed" {
		t.Errorf("factory got id %q, want fixed", gotID)
	}
	if err := c.Close(); err != nil || !owned.closed {
		t.Errorf("Close() = %v, closed = %v; want the owned cache closed", err, owned.closed)
	}

	borrowed := &closingCache{}
	c, _ = NewClient(NewClass("borrowed"), nil, WithCache(borrowed))
	_ = c.Close()
	if borrowed.closed {
		t.Error("Close() closed a cache the client does not own")
	}

	_, err = NewClient(NewClass("failing"), nil, WithCacheFactory(func(string) (cache.Cache, error) {
		return nil, errors.New("dial failed")
	}))
	if err == nil || !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("NewClient() error = %v, want the factory error", err)
	}
}

func TestClient_RedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	factory := func(id string) (cache.Cache, error) { return cache.NewRedisCache(rdb, id) }

	h := &counter{value: func(Args) any { return map[string]any{"plan": "dev"} }}
	class := NewClass("redis")
	_ = class.Register(Spec{Name: "info", Cache: ttl(time.Minute), Handler: h.handle})

	a, err := NewClient(class, nil, WithCacheFactory(factory))
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewClient(class, nil, WithCacheFactory(factory))
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range []*Client{a, a, b} {
		got, err := c.Call(ctx, "info")
		if err != nil {
			t.Fatalf("info() error = %v", err)
		}
		if got.(map[string]any)["plan"] != "dev" {
			t.Errorf("info() = %v", got)
		}
	}
	if h.Count() != 2 {
		t.Errorf("runs = %d, want 2 (one per client namespace)", h.Count())
	}
	keys := mr.Keys()
	if len(keys) != 2 {
		t.Fatalf("redis keys = %v, want one per client", keys)
	}
	for _, c := range []*Client{a, b} {
		found := false
		for _, k := range keys {
			found = found || strings.HasPrefix(k, c.InstanceID()+":redis.info:")
		}
		if !found {
			t.Errorf("no key in namespace %s: %v", c.InstanceID(), keys)
		}
	}
}

func TestClient_Observer(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "apicall-test",
		Logging:     observe.LoggingConfig{Enabled: true, Level: "debug", Writer: &buf},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer obs.Shutdown(ctx)

	class := NewClass("observed")
	_ = class.Register(Spec{Name: "info", Cache: ttl(time.Minute), Handler: (&counter{}).handle})
	_ = class.Register(Spec{Name: "boom", Handler: func(context.Context, *Client, Args) (any, error) {
		return nil, Validation("bad input")
	}})
	c, err := NewClient(class, nil, WithObserver(obs))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, _ = c.Call(ctx, "info")
	_, _ = c.Call(ctx, "info")
	_, _ = c.Call(ctx, "boom")

	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		msgs = append(msgs, entry["msg"].(string))
		if entry["call.class"] != "observed" {
			t.Errorf("log line %q lacks call.class", line)
		}
	}
	joined := strings.Join(msgs, ",")
	for _, want := range []string{"call completed", "cache hit", "call failed"} {
		if !strings.Contains(joined, want) {
			t.Errorf("logs %v lack %q", msgs, want)
		}
	}
}

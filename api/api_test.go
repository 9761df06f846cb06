package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/resilience"
	"github.com/jonwraymond/apicall/transport"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

type fakeTransport struct {
	mu    sync.Mutex
	reqs  []transport.Request
	reply func(req transport.Request) (*transport.Response, error)
}

func (f *fakeTransport) Send(_ context.Context, req transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.reply == nil {
		return &transport.Response{StatusCode: 200, JSON: map[string]any{"path": req.Path}}, nil
	}
	return f.reply(req)
}

func (f *fakeTransport) BaseURL() string { return "https://api.example.test" }

func (f *fakeTransport) Requests() []transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.Request(nil), f.reqs...)
}

// counter is a handler returning a fixed value and counting its runs.
type counter struct {
	mu    sync.Mutex
	n     int
	args  [][]any
	value func(args Args) any
}

func (h *counter) handle(_ context.Context, _ *Client, args Args) (any, error) {
	h.mu.Lock()
	h.n++
	h.args = append(h.args, append([]any(nil), args.Positional...))
	h.mu.Unlock()
	if h.value == nil {
		return map[string]any{"ok": true}, nil
	}
	return h.value(args), nil
}

func (h *counter) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

func (h *counter) Args() [][]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]any(nil), h.args...)
}

// sendPath is a handler sending one GET and deferring to its response.
func sendPath(path string) Handler {
	return func(ctx context.Context, c *Client, _ Args) (any, error) {
		_, err := c.Send(ctx, transport.Request{Method: "GET", Path: path})
		return nil, err
	}
}

func newTestClass(name string, clock *fakeClock, opts ...ClassOption) *Class {
	w := resilience.NewWindow(resilience.WithWindowClock(clock.Now, clock.Sleep))
	return NewClass(name, append([]ClassOption{WithWindow(w)}, opts...)...)
}

func newTestClient(t *testing.T, class *Class, tr transport.Transport, clock *fakeClock, opts ...Option) *Client {
	t.Helper()
	store := cache.NewMemoryCache(cache.DefaultPolicy(), cache.WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })
	base := []Option{WithCache(store), WithInstanceID("test-instance")}
	c, err := NewClient(class, tr, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustRegister(t *testing.T, class *Class, specs ...Spec) {
	t.Helper()
	for _, s := range specs {
		if err := class.Register(s); err != nil {
			t.Fatalf("Register(%s) error = %v", s.Name, err)
		}
	}
}

func ttl(d time.Duration) *CacheSpec { return &CacheSpec{TTL: d} }

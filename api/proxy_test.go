package api

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jonwraymond/apicall/transport"
)

func newProxyClient(t *testing.T) (*Client, *counter) {
	t.Helper()
	clock := newFakeClock()
	h := &counter{value: func(args Args) any { return args.Positional }}
	class := newTestClass("proxied", clock)
	mustRegister(t, class,
		Spec{Name: "search_host_info", Handler: h.handle},
		Spec{Name: "search_host", Handler: h.handle},
		Spec{Name: "search_query", Handler: h.handle},
	)
	return newTestClient(t, class, nil, clock), h
}

func TestProxy_Navigation(t *testing.T) {
	c, h := newProxyClient(t)
	root := c.Root()

	if got := root.Children(); !reflect.DeepEqual(got, []string{"search"}) {
		t.Errorf("root children = %v", got)
	}
	search, err := root.Child("search")
	if err != nil {
		t.Fatalf("Child(search) error = %v", err)
	}
	if search.IsLeaf() {
		t.Error("search is callable")
	}
	if got := search.Children(); !reflect.DeepEqual(got, []string{"host", "query"}) {
		t.Errorf("search children = %v, want declaration order", got)
	}

	host, err := search.Get("host")
	if err != nil {
		t.Fatal(err)
	}
	if !host.IsLeaf() || host.Path() != "search.host" || host.Spec().Name != "search_host" {
		t.Errorf("host proxy = leaf %v path %q", host.IsLeaf(), host.Path())
	}
	if got, _ := host.Call(context.Background(), "h"); !reflect.DeepEqual(got, []any{"h"}) {
		t.Errorf("host.Call() = %v", got)
	}

	info, err := root.Get("search.host.info")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := info.Call(context.Background(), "x", "y"); err != nil {
		t.Fatal(err)
	}
	if h.Count() != 2 {
		t.Errorf("runs = %d, want 2", h.Count())
	}
	if info.Owner() != c {
		t.Error("proxy not bound to its client")
	}

	if _, err := root.Get("search.nope"); !errors.Is(err, ErrNoSuchCall) {
		t.Errorf("Get(search.nope) error = %v, want ErrNoSuchCall", err)
	}
	if _, err := search.Call(context.Background()); !errors.Is(err, ErrNotCallable) {
		t.Errorf("search.Call() error = %v, want ErrNotCallable", err)
	}
	if p, _ := root.Get(""); p != root {
		t.Error("Get(\"\") did not return the receiver")
	}
}

func TestProxy_BoundPerClient(t *testing.T) {
	a, _ := newProxyClient(t)
	b, err := NewClient(a.Class(), nil, WithDisableCache(true))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	pa, _ := a.Root().Get("search.query")
	pb, _ := b.Root().Get("search.query")
	if pa.Owner() == pb.Owner() {
		t.Fatal("clients share proxies")
	}
	if pa.Spec() != pb.Spec() {
		t.Error("clients of one class see different specs")
	}
}

func TestProxy_Attr(t *testing.T) {
	c, _ := newProxyClient(t)
	p, _ := c.Root().Get("search")

	tests := []struct {
		name string
		want any
	}{
		{"cache_enabled", true},
		{"throttling_enabled", true},
		{"public", false},
		{"last_response", (*transport.Response)(nil)},
	}
	for _, tt := range tests {
		got, err := p.Attr(tt.name)
		if err != nil {
			t.Errorf("Attr(%s) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Attr(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if l, err := p.Attr("logger"); err != nil || l == nil {
		t.Errorf("Attr(logger) = %v, %v", l, err)
	}
	for _, name := range []string{"api_key", "cache", "transport", ""} {
		if _, err := p.Attr(name); !errors.Is(err, ErrNoAttribute) {
			t.Errorf("Attr(%q) error = %v, want ErrNoAttribute", name, err)
		}
	}
}

func TestProxy_Toggles(t *testing.T) {
	c, _ := newProxyClient(t)
	p, _ := c.Root().Get("search.host")

	if p.ToggleCaching() {
		t.Error("ToggleCaching() = true, want disabled")
	}
	if c.CacheEnabled() {
		t.Error("toggle through the proxy did not reach the client")
	}
	if p.ToggleThrottling() || c.ThrottlingEnabled() {
		t.Error("ToggleThrottling() did not disable throttling")
	}
	if !p.ToggleThrottling() {
		t.Error("second ToggleThrottling() did not re-enable")
	}
	if p.Logger() == nil {
		t.Error("Logger() = nil")
	}
}

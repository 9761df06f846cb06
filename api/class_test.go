package api

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jonwraymond/apicall/cache"
)

func noop(context.Context, *Client, Args) (any, error) { return nil, nil }

func TestClass_Register(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr error
	}{
		{name: "valid", spec: Spec{Name: "search_host_info", Handler: noop}},
		{name: "digits", spec: Spec{Name: "v2_info", Handler: noop}},
		{name: "empty", spec: Spec{Handler: noop}, wantErr: ErrInvalidName},
		{name: "empty token", spec: Spec{Name: "dns__resolve", Handler: noop}, wantErr: ErrInvalidName},
		{name: "trailing underscore", spec: Spec{Name: "dns_", Handler: noop}, wantErr: ErrInvalidName},
		{name: "uppercase", spec: Spec{Name: "DNS", Handler: noop}, wantErr: ErrInvalidName},
		{name: "no handler", spec: Spec{Name: "info"}, wantErr: ErrInvalidSpec},
		{name: "unknown kind", spec: Spec{Name: "info", Kind: Kind(9), Handler: noop}, wantErr: ErrInvalidSpec},
		{name: "bad demux", spec: Spec{Name: "info", Kind: KindBatch, Demux: cache.Demux(9), Handler: noop}, wantErr: ErrInvalidSpec},
		{name: "negative ttl", spec: Spec{Name: "info", Cache: &CacheSpec{TTL: -time.Second}, Handler: noop}, wantErr: ErrInvalidSpec},
		{name: "bad throttle", spec: Spec{Name: "info", Throttle: &Throttle{}, Handler: noop}, wantErr: ErrInvalidSpec},
		{name: "bad invalidation", spec: Spec{Name: "info", Invalidates: []string{"a.b"}, Handler: noop}, wantErr: ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewClass("c").Register(tt.spec)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClass_RegisterDuplicate(t *testing.T) {
	c := NewClass("c")
	if err := c.Register(Spec{Name: "info", Handler: noop}); err != nil {
		t.Fatal(err)
	}
	if err := c.Register(Spec{Name: "info", Handler: noop}); !errors.Is(err, ErrDuplicateCall) {
		t.Errorf("Register() error = %v, want ErrDuplicateCall", err)
	}
}

func TestClass_RegisterCopiesSpec(t *testing.T) {
	c := NewClass("c")
	inv := []string{"a"}
	spec := Spec{Name: "b", Invalidates: inv, Handler: noop}
	_ = c.Register(Spec{Name: "a", Handler: noop})
	_ = c.Register(spec)
	inv[0] = "zzz"

	tree, err := c.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	s, _ := tree.Lookup("b")
	if s.Invalidates[0] != "a" {
		t.Errorf("Invalidates = %v, caller mutation leaked", s.Invalidates)
	}
}

func TestClass_BuildSeals(t *testing.T) {
	parent := NewClass("parent")
	child := NewClass("child", WithParent(parent))
	_ = child.Register(Spec{Name: "info", Handler: noop})

	t1, err := child.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t2, _ := child.Build()
	if t1 != t2 {
		t.Error("Build() returned a new tree on the second call")
	}
	if err := child.Register(Spec{Name: "other", Handler: noop}); !errors.Is(err, ErrClassSealed) {
		t.Errorf("Register() on built class error = %v, want ErrClassSealed", err)
	}
	if err := parent.Register(Spec{Name: "other", Handler: noop}); !errors.Is(err, ErrClassSealed) {
		t.Errorf("Register() on built parent error = %v, want ErrClassSealed", err)
	}
}

func TestClass_BuildOrderAndOverrides(t *testing.T) {
	root := NewClass("root")
	_ = root.Register(Spec{Name: "info", Handler: noop})
	_ = root.Register(Spec{Name: "account_profile", Handler: noop})
	mid := NewClass("mid", WithParent(root))
	_ = mid.Register(Spec{Name: "dns_resolve", Handler: noop})
	_ = mid.Register(Spec{Name: "info", Handler: noop})
	leaf := NewClass("leaf", WithParent(mid))
	_ = leaf.Register(Spec{Name: "dns", Handler: noop})

	tree, err := leaf.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := []string{"account.profile", "dns.resolve", "info", "dns"}
	if got := tree.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}

	info, ok := tree.Lookup("info")
	if !ok || info.ID() != "mid.info" {
		t.Errorf("Lookup(info) = %v, want mid.info", info)
	}
	if s, _ := tree.Lookup("account.profile"); s.ID() != "root.account_profile" {
		t.Errorf("inherited call ID = %s, want root.account_profile", s.ID())
	}

	// dns is both callable and a branch.
	n, ok := tree.Root().find("dns")
	if !ok || !n.IsLeaf() || len(n.Children()) != 1 {
		t.Errorf("dns node: leaf=%v children=%d, want leaf with 1 child", n.IsLeaf(), len(n.Children()))
	}
	if _, ok := tree.Lookup("dns.lookup"); ok {
		t.Error("Lookup(dns.lookup) found a call")
	}
}

func TestClass_BuildUnknownInvalidation(t *testing.T) {
	c := NewClass("c")
	_ = c.Register(Spec{Name: "info", Invalidates: []string{"profile"}, Handler: noop})
	if _, err := c.Build(); !errors.Is(err, ErrUnknownInvalidation) {
		t.Errorf("Build() error = %v, want ErrUnknownInvalidation", err)
	}
}

func TestClass_Resolve(t *testing.T) {
	parent := NewClass("parent")
	_ = parent.Register(Spec{Name: "info", Handler: noop})
	_ = parent.Register(Spec{Name: "profile", Handler: noop})
	child := NewClass("child", WithParent(parent))
	_ = child.Register(Spec{Name: "info", Handler: noop})

	tests := []struct {
		name   string
		wantID string
	}{
		{"info", "child.info"},
		{"profile", "parent.profile"},
		{"missing", ""},
	}
	for _, tt := range tests {
		s, ok := child.Resolve(tt.name)
		if tt.wantID == "" {
			if ok {
				t.Errorf("Resolve(%s) = %s, want none", tt.name, s.ID())
			}
			continue
		}
		if !ok || s.ID() != tt.wantID {
			t.Errorf("Resolve(%s) = %v, want %s", tt.name, s, tt.wantID)
		}
	}
}

func TestSpec_Path(t *testing.T) {
	s := &Spec{Name: "search_host_info"}
	if s.Path() != "search.host.info" {
		t.Errorf("Path() = %s", s.Path())
	}
	if s.ID() != "search_host_info" {
		t.Errorf("unregistered ID() = %s", s.ID())
	}
	if KindBatch.String() != "batch" || Kind(5).String() != "Kind(5)" {
		t.Errorf("Kind.String() = %s, %s", KindBatch, Kind(5))
	}
}

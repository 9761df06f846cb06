package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/apicall/resilience"
)

// Loader executes the underlying call with the given positional arguments.
//
// A non-nil value returned together with an error marks a remote error: the
// value is the error-shaped body, which is cached and replayed like any other
// result. Errors returned with a nil value are never cached.
type Loader func(ctx context.Context, args []any) (any, error)

// Replayer turns a cached value back into a call result. It must return an
// error for error-shaped values so that cached remote errors are raised again.
type Replayer func(value any) (any, error)

// Call describes one cached invocation.
type Call struct {
	// Bucket identifies the registered call. Every fingerprint of the call
	// lives in this bucket.
	Bucket string

	// Args are the positional arguments. For batch calls each one is an
	// independent cache key.
	Args []any

	// Named are the keyword arguments, part of every fingerprint.
	Named map[string]any

	// Force skips the lookup and overwrites the entry with a fresh expiry.
	Force bool

	// TTL is the call's declared TTL, resolved through Policy.EffectiveTTL.
	TTL time.Duration

	// Retries is the maximum number of batch attempts. Default: 1
	Retries int

	// Demux splits batch responses.
	Demux Demux

	// Replay normalizes cached values. Nil returns values unchanged.
	Replay Replayer
}

func (c Call) replay(v any) (any, error) {
	if c.Replay == nil {
		return v, nil
	}
	return c.Replay(v)
}

// Result is the outcome of a single call.
type Result struct {
	Value any
	// Hit is true when the value was served from the cache.
	Hit bool
}

// BatchResult is the outcome of a batch call.
type BatchResult struct {
	// Values holds one result per resolved item, keyed by ItemKey.
	Values map[string]any
	// Hit is true when every item was served from the cache.
	Hit bool
	// Requested lists the items sent by each attempt.
	Requested [][]string
	// Unresolved lists the items dropped after the last attempt.
	Unresolved []string
}

// Middleware orchestrates cache lookups, loads and writes for registered
// calls.
//
// Contract:
// - Concurrency: safe for concurrent use; identical concurrent single-call
// misses share one load.
// - Errors: loader errors are returned unchanged.
type Middleware struct {
	cache  Cache
	keyer  Keyer
	policy Policy
	group  singleflight.Group
}

// NewMiddleware creates a cache middleware. A nil keyer uses DefaultKeyer.
func NewMiddleware(cache Cache, keyer Keyer, policy Policy) (*Middleware, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Middleware{cache: cache, keyer: keyer, policy: policy}, nil
}

// Cache returns the underlying store.
func (m *Middleware) Cache() Cache {
	return m.cache
}

// Invalidate drops every entry of bucket.
func (m *Middleware) Invalidate(ctx context.Context, bucket string) error {
	return m.cache.Clear(ctx, bucket)
}

type flight struct {
	value any
	err   error
}

// Single serves a single-key call: a valid entry is replayed unless the call
// is forced; otherwise the loader runs and its result is stored.
func (m *Middleware) Single(ctx context.Context, call Call, load Loader) (Result, error) {
	key, err := m.keyer.Key(call.Bucket, call.Args, call.Named)
	if err != nil {
		// Unfingerprintable arguments are executed without caching.
		v, err := load(ctx, call.Args)
		return Result{Value: v}, err
	}

	if !call.Force {
		if cached, ok := m.cache.Get(ctx, call.Bucket, key); ok {
			v, err := call.replay(cached)
			return Result{Value: v, Hit: true}, err
		}
	}

	ttl := m.policy.EffectiveTTL(call.TTL)
	fetch := func() flight {
		v, err := load(ctx, call.Args)
		if v != nil {
			_ = m.cache.Set(ctx, call.Bucket, key, v, ttl)
		}
		return flight{value: v, err: err}
	}

	if call.Force {
		f := fetch()
		return Result{Value: f.value}, f.err
	}

	shared, _, _ := m.group.Do(call.Bucket+":"+key, func() (any, error) {
		return fetch(), nil
	})
	f := shared.(flight)
	return Result{Value: f.value}, f.err
}

type pendingItem struct {
	item any
	name string
	key  string
}

// Batch serves a multi-key call. Valid entries are replayed; the remaining
// items are requested together, demultiplexed and stored one entry per item.
// Items still unresolved are re-requested, alone, up to call.Retries attempts
// in total and then dropped.
//
// A load error ends the batch and nothing from that attempt is stored, even
// when the loader marks it as a remote error: a combined response that is
// error-shaped cannot be attributed to single items.
func (m *Middleware) Batch(ctx context.Context, call Call, load Loader) (BatchResult, error) {
	res := BatchResult{Values: make(map[string]any, len(call.Args))}
	if !call.Demux.Valid() {
		return res, ErrInvalidDemux
	}

	var pending []pendingItem
	seen := make(map[string]any, len(call.Args))
	for _, item := range call.Args {
		name := ItemKey(item)
		if prev, dup := seen[name]; dup {
			if !reflect.DeepEqual(prev, item) {
				return res, fmt.Errorf("%w: %#v and %#v", ErrItemClash, prev, item)
			}
			continue
		}
		seen[name] = item

		key, err := m.keyer.Key(call.Bucket, []any{item}, call.Named)
		if err != nil {
			key = ""
		}
		if !call.Force && key != "" {
			if cached, ok := m.cache.Get(ctx, call.Bucket, key); ok {
				v, err := call.replay(cached)
				if err != nil {
					return res, err
				}
				res.Values[name] = v
				continue
			}
		}
		pending = append(pending, pendingItem{item: item, name: name, key: key})
	}

	res.Hit = len(pending) == 0
	if res.Hit {
		return res, nil
	}

	ttl := m.policy.EffectiveTTL(call.TTL)
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: call.Retries,
		RetryIf:     func(err error) bool { return errors.Is(err, ErrUnresolved) },
	})

	err := retry.Execute(ctx, func(ctx context.Context, _ int) error {
		args := make([]any, len(pending))
		names := make([]string, len(pending))
		for i, p := range pending {
			args[i] = p.item
			names[i] = p.name
		}
		res.Requested = append(res.Requested, names)

		raw, err := load(ctx, args)
		if err != nil {
			return err
		}
		parts, err := call.Demux.Split(names, raw)
		if err != nil {
			return err
		}

		remaining := make([]pendingItem, 0, len(pending))
		for _, p := range pending {
			v, ok := parts[p.name]
			if !ok {
				remaining = append(remaining, p)
				continue
			}
			if p.key != "" {
				_ = m.cache.Set(ctx, call.Bucket, p.key, v, ttl)
			}
			res.Values[p.name] = v
		}
		pending = remaining
		if len(pending) > 0 {
			return ErrUnresolved
		}
		return nil
	})

	if errors.Is(err, ErrUnresolved) {
		for _, p := range pending {
			res.Unresolved = append(res.Unresolved, p.name)
		}
		return res, nil
	}
	return res, err
}

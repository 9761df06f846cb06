package health

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/secret"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component works with reduced capability.
	StatusDegraded
	// StatusUnhealthy indicates the component is not usable.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Error    error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is one named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkerFunc struct {
	name string
	fn   func(context.Context) Result
}

// Func adapts fn into a Checker.
func Func(name string, fn func(context.Context) Result) Checker {
	return &checkerFunc{name: name, fn: fn}
}

func (f *checkerFunc) Name() string                     { return f.name }
func (f *checkerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Pinger is implemented by components reachable over the network.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports Unhealthy when p does not answer.
func PingChecker(name string, p Pinger) Checker {
	return Func(name, func(ctx context.Context) Result {
		if err := p.Ping(ctx); err != nil {
			return Unhealthy("ping failed", err)
		}
		return Healthy("reachable")
	})
}

const checkBucket = "health.check"

// CacheChecker stores, reads back and deletes a sample entry in c.
// A cache that accepts the entry but does not return it, such as a
// disabled cache, is Degraded.
func CacheChecker(name string, c cache.Cache) Checker {
	return Func(name, func(ctx context.Context) Result {
		if c == nil {
			return Unhealthy("no cache", cache.ErrNilCache)
		}
		if p, ok := c.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return Unhealthy("ping failed", err)
			}
		}

		key := uuid.NewString()
		if err := c.Set(ctx, checkBucket, key, key, time.Minute); err != nil {
			return Unhealthy("sample write failed", err)
		}
		defer func() { _ = c.Delete(context.WithoutCancel(ctx), checkBucket, key) }()

		got, ok := c.Get(ctx, checkBucket, key)
		if !ok || got != key {
			return Degraded("cache does not retain entries").WithDetails(map[string]any{"error": ErrNotRetained.Error()})
		}

		r := Healthy("entries round-trip")
		if l, ok := c.(interface{ Len() int }); ok {
			r = r.WithDetails(map[string]any{"entries": l.Len()})
		}
		return r
	})
}

// SecretChecker resolves value with r. An empty result is Degraded since the
// client then only reaches public calls.
func SecretChecker(name string, r *secret.Resolver, value string) Checker {
	return Func(name, func(ctx context.Context) Result {
		resolved, err := r.ResolveValue(ctx, value)
		if err != nil {
			return Unhealthy("api key does not resolve", err)
		}
		if resolved == "" {
			return Degraded("no api key; only public calls are available")
		}
		return Healthy("api key resolved")
	})
}

package api

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/resilience"
)

// Kind tells how a call interacts with the cache.
type Kind int

const (
	// KindSingle calls are cached as one entry per argument tuple.
	KindSingle Kind = iota
	// KindBatch calls take many items and cache one entry per item.
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindBatch:
		return "batch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Handler performs one call. It receives the owning client, never a proxy.
//
// Returning a nil value defers to the last response the client received.
type Handler func(ctx context.Context, c *Client, args Args) (any, error)

// CacheSpec enables caching for a call.
type CacheSpec struct {
	// TTL is the entry lifetime. Zero uses the client's cache policy.
	TTL time.Duration
	// Retries is the number of attempts a batch call makes for unresolved
	// items. Default: 1
	Retries int
}

// Throttle bounds how many calls are admitted per period.
type Throttle struct {
	Period time.Duration
	// MaxPeriod, when above Period, samples the period per admission.
	MaxPeriod time.Duration
	// Requests per period. Default: 1
	Requests int
}

func (t Throttle) config() resilience.WindowConfig {
	return resilience.WindowConfig{Period: t.Period, MaxPeriod: t.MaxPeriod, Requests: t.Requests}
}

// Spec declares one call of an API class.
type Spec struct {
	// Name is the call name: lowercase tokens joined by underscores. Each
	// token is one level of the call tree ("dns_resolve" is dns.resolve).
	Name    string
	Kind    Kind
	Handler Handler

	// Cache, when set, caches results.
	Cache *CacheSpec
	// Throttle, when set, admits calls through the class window.
	Throttle *Throttle
	// Invalidates names calls whose cache is cleared after this call
	// succeeds.
	Invalidates []string
	// Private calls are refused on public plans.
	Private bool
	// Demux splits batch responses per item.
	Demux cache.Demux
	// NoError lists error messages that do not denote a failure.
	NoError []string
	// Doc is a one-line description.
	Doc string

	class *Class
	order int
}

var nameRE = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

func (s *Spec) validate() error {
	if !nameRE.MatchString(s.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, s.Name)
	}
	if s.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidSpec, s.Name)
	}
	switch s.Kind {
	case KindSingle:
	case KindBatch:
		if !s.Demux.Valid() {
			return fmt.Errorf("%w: %s has an unknown demux mode", ErrInvalidSpec, s.Name)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %s", ErrInvalidSpec, s.Name, s.Kind)
	}
	if s.Cache != nil && (s.Cache.TTL < 0 || s.Cache.Retries < 0) {
		return fmt.Errorf("%w: %s has a negative cache setting", ErrInvalidSpec, s.Name)
	}
	if s.Throttle != nil {
		if err := s.Throttle.config().Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidSpec, s.Name, err)
		}
	}
	for _, name := range s.Invalidates {
		if !nameRE.MatchString(name) {
			return fmt.Errorf("%w: %s invalidates %q", ErrInvalidName, s.Name, name)
		}
	}
	return nil
}

// ID identifies the call across classes: "<declaring class>.<name>". It is
// the cache bucket of the call.
func (s *Spec) ID() string {
	if s.class == nil {
		return s.Name
	}
	return s.class.name + "." + s.Name
}

// Path returns the dotted call path.
func (s *Spec) Path() string {
	return strings.ReplaceAll(s.Name, "_", ".")
}

// Class returns the class that declared the call.
func (s *Spec) Class() *Class {
	return s.class
}

func (s *Spec) tokens() []string {
	return strings.Split(s.Name, "_")
}

func (s *Spec) retries() int {
	if s.Cache == nil || s.Cache.Retries <= 0 {
		return 1
	}
	return s.Cache.Retries
}

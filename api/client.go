package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/observe"
	"github.com/jonwraymond/apicall/transport"
)

// CacheFactory builds the cache of one client. It receives the client's
// instance id, which shared backends use as a namespace.
type CacheFactory func(instanceID string) (cache.Cache, error)

type clientOptions struct {
	cache        cache.Cache
	cacheFactory CacheFactory
	policy       cache.Policy
	keyer        cache.Keyer
	disableCache bool
	disableThrot bool
	apiKey       string
	public       bool
	noError      []string
	logger       observe.Logger
	observer     observe.Observer
	instanceID   string
	search       SearchBackend
}

// Option configures a Client.
type Option func(*clientOptions)

// WithCache sets the client's cache. The caller keeps ownership: Close does
// not close it.
func WithCache(c cache.Cache) Option {
	return func(o *clientOptions) { o.cache = c }
}

// WithCacheFactory builds the client's cache from its instance id. The
// client owns the result and closes it if it implements io.Closer.
func WithCacheFactory(f CacheFactory) Option {
	return func(o *clientOptions) { o.cacheFactory = f }
}

// WithCachePolicy sets the TTL policy. Default: cache.DefaultPolicy()
func WithCachePolicy(p cache.Policy) Option {
	return func(o *clientOptions) { o.policy = p }
}

// WithKeyer replaces the fingerprinting scheme.
func WithKeyer(k cache.Keyer) Option {
	return func(o *clientOptions) { o.keyer = k }
}

// WithDisableCache starts the client with caching disabled.
func WithDisableCache(disable bool) Option {
	return func(o *clientOptions) { o.disableCache = disable }
}

// WithDisableThrottling starts the client with throttling disabled.
func WithDisableThrottling(disable bool) Option {
	return func(o *clientOptions) { o.disableThrot = disable }
}

// WithAPIKey sets the API key handlers send.
func WithAPIKey(key string) Option {
	return func(o *clientOptions) { o.apiKey = key }
}

// WithPublic sets the initial plan. Private calls fail on public plans.
func WithPublic(public bool) Option {
	return func(o *clientOptions) { o.public = public }
}

// WithNoError lists error messages that do not denote a failure.
func WithNoError(phrases ...string) Option {
	return func(o *clientOptions) { o.noError = append(o.noError, phrases...) }
}

// WithLogger sets the logger. It overrides the observer's logger.
func WithLogger(l observe.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithObserver traces and measures every call.
func WithObserver(obs observe.Observer) Option {
	return func(o *clientOptions) { o.observer = obs }
}

// WithInstanceID fixes the instance id instead of generating one.
func WithInstanceID(id string) Option {
	return func(o *clientOptions) { o.instanceID = id }
}

// Client is one instance of an API class: its own cache, credentials and
// toggles, bound to the class's call tree.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every call and Send honor cancellation, including while
// throttled.
// - Ownership: caches built by the client are closed by Close.
type Client struct {
	class     *Class
	tree      *Tree
	root      *Proxy
	transport transport.Transport
	id        string

	store     cache.Cache
	ownsStore bool
	cached    *cache.Middleware
	uncached  *cache.Middleware

	obs     *observe.Middleware
	logger  observe.Logger
	apiKey  string
	noError []string

	cacheOff    atomic.Bool
	throttleOff atomic.Bool
	public      atomic.Bool

	mu     sync.Mutex
	last   *transport.Response
	search SearchBackend
}

// NewClient builds a client of class sending through tr. A nil transport is
// allowed for classes whose handlers never call Send.
func NewClient(class *Class, tr transport.Transport, opts ...Option) (*Client, error) {
	if class == nil {
		return nil, ErrNilClass
	}
	o := clientOptions{policy: cache.DefaultPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.search.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSearchBackend, o.search)
	}

	tree, err := class.Build()
	if err != nil {
		return nil, err
	}

	c := &Client{
		class:     class,
		tree:      tree,
		transport: tr,
		id:        o.instanceID,
		apiKey:    o.apiKey,
		search:    o.search,
		noError:   append(append([]string(nil), class.noError...), o.noError...),
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	c.cacheOff.Store(o.disableCache)
	c.throttleOff.Store(o.disableThrot)
	c.public.Store(o.public)

	switch {
	case o.cache != nil:
		c.store = o.cache
	case o.cacheFactory != nil:
		if c.store, err = o.cacheFactory(c.id); err != nil {
			return nil, fmt.Errorf("api: build cache: %w", err)
		}
		c.ownsStore = true
	default:
		c.store = cache.NewMemoryCache(o.policy)
		c.ownsStore = true
	}
	if c.cached, err = cache.NewMiddleware(c.store, o.keyer, o.policy); err != nil {
		return nil, err
	}
	if c.uncached, err = cache.NewMiddleware(cache.Nop{}, o.keyer, o.policy); err != nil {
		return nil, err
	}

	if o.observer != nil {
		if c.obs, err = observe.MiddlewareFromObserver(o.observer); err != nil {
			return nil, err
		}
		if o.logger != nil {
			c.obs = c.obs.WithLogger(o.logger)
		}
	} else {
		c.obs = observe.NopMiddleware(o.logger)
	}
	c.logger = c.obs.Logger()

	c.root = bind(c, tree.Root())
	return c, nil
}

// Class returns the client's class.
func (c *Client) Class() *Class { return c.class }

// Tree returns the client's call tree.
func (c *Client) Tree() *Tree { return c.tree }

// Root returns the root proxy of the call tree.
func (c *Client) Root() *Proxy { return c.root }

// InstanceID returns the client's unique id.
func (c *Client) InstanceID() string { return c.id }

// Cache returns the client's cache.
func (c *Client) Cache() cache.Cache { return c.store }

// Logger returns the client's logger.
func (c *Client) Logger() observe.Logger {
	return c.logger.With(
		observe.Field{Key: "client.class", Value: c.class.name},
		observe.Field{Key: "client.instance", Value: c.id},
	)
}

// APIKey returns the API key.
func (c *Client) APIKey() string { return c.apiKey }

// CheckAPIKey returns a 401 *Error matching ErrMissingAPIKey when the client
// has no API key. An empty msg uses "missing API key".
func (c *Client) CheckAPIKey(msg string) error {
	if c.apiKey != "" {
		return nil
	}
	if msg == "" {
		msg = "missing API key"
	}
	return &Error{Message: msg, Code: 401, kind: ErrMissingAPIKey}
}

// Public reports whether the client runs on a public plan.
func (c *Client) Public() bool { return c.public.Load() }

// SetPublic changes the plan.
func (c *Client) SetPublic(public bool) { c.public.Store(public) }

// CacheEnabled reports whether calls use the cache.
func (c *Client) CacheEnabled() bool { return !c.cacheOff.Load() }

// ThrottlingEnabled reports whether calls admit through the class window.
func (c *Client) ThrottlingEnabled() bool { return !c.throttleOff.Load() }

// SetCaching enables or disables the cache.
func (c *Client) SetCaching(enabled bool) { c.cacheOff.Store(!enabled) }

// SetThrottling enables or disables throttling. The class window is left
// untouched for the other clients.
func (c *Client) SetThrottling(enabled bool) { c.throttleOff.Store(!enabled) }

// ToggleCaching flips the cache switch and returns the new state.
func (c *Client) ToggleCaching() bool {
	for {
		old := c.cacheOff.Load()
		if c.cacheOff.CompareAndSwap(old, !old) {
			return old
		}
	}
}

// ToggleThrottling flips the throttling switch and returns the new state.
func (c *Client) ToggleThrottling() bool {
	for {
		old := c.throttleOff.Load()
		if c.throttleOff.CompareAndSwap(old, !old) {
			return old
		}
	}
}

// LastResponse returns the last response received by any call of the client.
func (c *Client) LastResponse() *transport.Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Send performs one request through the transport. When the class declares
// a request throttle it admits through the class window first. The response
// becomes the client's last response.
func (c *Client) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	if c.transport == nil {
		return nil, ErrNoTransport
	}
	if t := c.class.requestThrottle; t != nil && c.ThrottlingEnabled() {
		ticket, err := c.class.window.Acquire(ctx, t.config())
		if err != nil {
			return nil, err
		}
		c.obs.RecordThrottle(ctx, observe.CallMeta{Class: c.class.name, Path: "send", Instance: c.id}, ticket.Waited())
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.last = resp
	c.mu.Unlock()
	if slot := slotFrom(ctx); slot != nil {
		slot.set(resp)
	}
	return resp, nil
}

// Close releases the cache when the client built it.
func (c *Client) Close() error {
	if !c.ownsStore {
		return nil
	}
	var errs []error
	if closer, ok := c.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) baseURL() string {
	if c.transport == nil {
		return "<no transport>"
	}
	return c.transport.BaseURL()
}

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/apis"
	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/health"
	"github.com/jonwraymond/apicall/observe"
	"github.com/jonwraymond/apicall/secret"
)

// Option configures Open.
type Option func(*runtimeOptions)

type runtimeOptions struct {
	logWriter io.Writer
	resolver  *secret.Resolver
}

// WithLogWriter sends log lines to w instead of os.Stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *runtimeOptions) { o.logWriter = w }
}

// WithResolver resolves secrets with r. The caller keeps ownership of r.
func WithResolver(r *secret.Resolver) Option {
	return func(o *runtimeOptions) { o.resolver = r }
}

// Runtime owns everything built from a Config: the observer, the secret
// resolver, the shared Redis connection and the clients.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: Close releases every client and connection it built.
type Runtime struct {
	cfg      Config
	policy   cache.Policy
	observer observe.Observer
	resolver *secret.Resolver
	ownsRes  bool
	redis    redis.UniversalClient

	mu      sync.Mutex
	clients map[string]*api.Client
	closed  bool
}

// Open validates cfg and builds the shared infrastructure. Clients are built
// on first use by Client.
func Open(ctx context.Context, cfg *Config, opts ...Option) (_ *Runtime, err error) {
	if cfg == nil {
		def := Default()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o runtimeOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{
		cfg:     *cfg,
		policy:  cfg.Policy(),
		clients: make(map[string]*api.Client),
	}
	defer func() {
		if err != nil {
			_ = rt.Close(ctx)
		}
	}()

	obsCfg := cfg.ObserveConfig()
	obsCfg.Logging.Writer = o.logWriter
	if rt.observer, err = observe.NewObserver(ctx, obsCfg); err != nil {
		return nil, fmt.Errorf("config: build observer: %w", err)
	}

	switch {
	case o.resolver != nil:
		rt.resolver = o.resolver
	case len(cfg.Secrets) > 0:
		providers := make(map[string]map[string]any, len(cfg.Secrets))
		for name, sc := range cfg.Secrets {
			providers[name] = sc
		}
		if rt.resolver, err = secret.DefaultRegistry.Resolver(true, providers); err != nil {
			return nil, fmt.Errorf("config: build secret resolver: %w", err)
		}
		rt.ownsRes = true
	default:
		rt.resolver = secret.NewDefaultResolver()
		rt.ownsRes = true
	}

	if cfg.Cache.Backend == BackendRedis {
		if rt.redis, err = rt.openRedis(ctx); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

func (r *Runtime) openRedis(ctx context.Context) (redis.UniversalClient, error) {
	rc := r.cfg.Cache.Redis
	password, err := r.resolver.ResolveValue(ctx, rc.Password)
	if err != nil {
		return nil, fmt.Errorf("config: resolve redis password: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    rc.Addrs,
		Password: password,
		DB:       rc.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("config: connect redis: %w", err)
	}
	return client, nil
}

// Config returns the configuration the runtime was opened with.
func (r *Runtime) Config() Config { return r.cfg }

// Observer returns the runtime's observer.
func (r *Runtime) Observer() observe.Observer { return r.observer }

// Logger returns the runtime's logger.
func (r *Runtime) Logger() observe.Logger { return r.observer.Logger() }

// Client returns the client registered under name, building it on first use.
// A name without a clients entry gets default settings.
func (r *Runtime) Client(ctx context.Context, name string) (*api.Client, error) {
	if !apis.Known(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClient, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	cc := r.cfg.Clients[name]
	key, err := r.resolver.ResolveValue(ctx, cc.APIKey)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s api_key: %w", name, err)
	}

	opts := []api.Option{
		api.WithObserver(r.observer),
		api.WithCachePolicy(r.policy),
		api.WithCacheFactory(r.cacheFactory),
		api.WithDisableCache(cc.DisableCache),
		api.WithDisableThrottling(cc.DisableTimeThrottling),
		api.WithSearchBackend(cc.SearchBackend),
	}
	if ns := r.cfg.Cache.Redis.Namespace; r.redis != nil && ns != "" {
		opts = append(opts, api.WithInstanceID(ns+"."+name))
	}

	c, err := apis.New(name, apis.Settings{
		APIKey:    key,
		BaseURL:   cc.BaseURL,
		UserAgent: cc.UserAgent,
		Timeout:   cc.Timeout,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("config: build client %s: %w", name, err)
	}
	r.clients[name] = c
	r.observer.Logger().Debug(ctx, "client built",
		observe.Field{Key: "client.class", Value: name},
		observe.Field{Key: "client.instance", Value: c.InstanceID()},
		observe.Field{Key: "cache.backend", Value: r.cfg.Cache.Backend},
	)
	return c, nil
}

func (r *Runtime) cacheFactory(instanceID string) (cache.Cache, error) {
	switch r.cfg.Cache.Backend {
	case BackendLRU:
		return cache.NewLRUCache(r.policy)
	case BackendRedis:
		return cache.NewRedisCache(r.redis, instanceID)
	default:
		return cache.NewMemoryCache(r.policy), nil
	}
}

// Checks returns an aggregator over the runtime's infrastructure: the Redis
// connection, the API key of every configured client and the cache of every
// client built so far.
func (r *Runtime) Checks() *health.Aggregator {
	agg := health.NewAggregator()
	if r.redis != nil {
		agg.Register(health.PingChecker("redis", redisPinger{r.redis}))
	}
	for _, name := range r.cfg.ClientNames() {
		agg.Register(health.SecretChecker("secret."+name, r.resolver, r.cfg.Clients[name].APIKey))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range apis.Names() {
		if c, ok := r.clients[name]; ok {
			agg.Register(health.CacheChecker("cache."+name, c.Cache()))
		}
	}
	return agg
}

type redisPinger struct{ client redis.UniversalClient }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// Close closes every client, the Redis connection, the owned resolver and
// the observer. Errors are joined. Close is idempotent.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	clients := r.clients
	r.clients = nil
	r.mu.Unlock()

	var errs []error
	for name, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client %s: %w", name, err))
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.ownsRes {
		if err := r.resolver.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.observer != nil {
		if err := r.observer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/apis"
	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/observe"
)

// Cache backend names.
const (
	BackendMemory = "memory"
	BackendLRU    = "lru"
	BackendRedis  = "redis"
)

// ValidBackends lists valid cache backend names.
var ValidBackends = []string{BackendMemory, BackendLRU, BackendRedis}

// Config is the top-level configuration file.
type Config struct {
	Observe ObserveConfig           `yaml:"observe"`
	Cache   CacheConfig             `yaml:"cache"`
	Secrets map[string]SecretConfig `yaml:"secrets,omitempty"`
	Clients map[string]ClientConfig `yaml:"clients,omitempty"`
}

// ObserveConfig mirrors observe.Config.
type ObserveConfig struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig mirrors observe.TracingConfig.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
	Endpoint  string  `yaml:"endpoint,omitempty"`
	Insecure  bool    `yaml:"insecure,omitempty"`
}

// MetricsConfig mirrors observe.MetricsConfig.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

// LoggingConfig mirrors observe.LoggingConfig.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
}

// CacheConfig selects and tunes the cache backend shared by every client.
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	MaxTTL        time.Duration `yaml:"max_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxEntries    int           `yaml:"max_entries"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig addresses the Redis server used by the redis backend.
// Several addresses select a cluster client.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password,omitempty"`
	DB       int      `yaml:"db"`

	// Namespace, when set, gives every client the stable instance id
	// "<namespace>.<client>" so processes sharing the server share entries.
	// Otherwise each client keeps a private random namespace.
	Namespace string `yaml:"namespace,omitempty"`
}

// SecretConfig configures one secret provider by name ("env", "file").
type SecretConfig map[string]any

// ClientConfig holds the settings of one concrete API client.
type ClientConfig struct {
	APIKey                string        `yaml:"api_key,omitempty"`
	BaseURL               string        `yaml:"base_url,omitempty"`
	UserAgent             string        `yaml:"user_agent,omitempty"`
	Timeout               time.Duration `yaml:"timeout,omitempty"`
	DisableCache          bool          `yaml:"disable_cache,omitempty"`
	DisableTimeThrottling bool          `yaml:"disable_time_throttling,omitempty"`
	// SearchBackend is "regex" (default), "jmespath" or "jsonpath".
	SearchBackend api.SearchBackend `yaml:"search_backend,omitempty"`
}

// Default returns the configuration used for keys a file leaves out:
// an in-memory cache with a five minute default TTL and info logging.
func Default() Config {
	p := cache.DefaultPolicy()
	return Config{
		Observe: ObserveConfig{
			ServiceName: "apicall",
			Tracing:     TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     MetricsConfig{Exporter: "none"},
			Logging:     LoggingConfig{Enabled: true, Level: "info"},
		},
		Cache: CacheConfig{
			Backend:    BackendMemory,
			DefaultTTL: p.DefaultTTL,
			MaxEntries: p.MaxEntries,
		},
	}
}

// Load reads, parses and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error

	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(ValidBackends, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBackend, c.Cache.Backend))
	}
	if c.Cache.Backend == BackendRedis && len(c.Cache.Redis.Addrs) == 0 {
		errs = append(errs, ErrMissingRedisAddr)
	}
	for name, d := range map[string]time.Duration{
		"cache.default_ttl":    c.Cache.DefaultTTL,
		"cache.max_ttl":        c.Cache.MaxTTL,
		"cache.sweep_interval": c.Cache.SweepInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNegativeDuration, name))
		}
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, ErrInvalidMaxEntries)
	}

	for _, name := range c.ClientNames() {
		if !apis.Known(name) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownClient, name))
			continue
		}
		cc := c.Clients[name]
		if cc.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%w: clients.%s.timeout", ErrNegativeDuration, name))
		}
		if !cc.SearchBackend.Valid() {
			errs = append(errs, fmt.Errorf("%w: clients.%s: %q", ErrInvalidSearchBackend, name, cc.SearchBackend))
		}
	}
	return errors.Join(errs...)
}

// ClientNames returns the configured client names, sorted.
func (c *Config) ClientNames() []string {
	names := make([]string, 0, len(c.Clients))
	for name := range c.Clients {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ObserveConfig converts the observe section.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
			Endpoint:  o.Tracing.Endpoint,
			Insecure:  o.Tracing.Insecure,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
			Endpoint: o.Metrics.Endpoint,
			Insecure: o.Metrics.Insecure,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// Policy converts the cache section.
func (c *Config) Policy() cache.Policy {
	return cache.Policy{
		DefaultTTL:    c.Cache.DefaultTTL,
		MaxTTL:        c.Cache.MaxTTL,
		SweepInterval: c.Cache.SweepInterval,
		MaxEntries:    c.Cache.MaxEntries,
	}
}

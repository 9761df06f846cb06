package secret

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from configuration.
type ProviderFactory func(cfg map[string]any) (Provider, error)

// Registry manages provider factories.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]ProviderFactory)}
}

// Register adds a provider factory.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return ErrInvalidRegistration
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.providers[name] = factory
	return nil
}

// Create instantiates a provider by name.
func (r *Registry) Create(name string, cfg map[string]any) (Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidRef
	}

	r.mu.RLock()
	factory, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}

	return factory(cfg)
}

// List returns registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolver creates every named provider and returns a resolver over them.
// Providers created before a failure are closed.
func (r *Registry) Resolver(strict bool, configs map[string]map[string]any) (*Resolver, error) {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	res := NewResolver(strict)
	for _, name := range names {
		p, err := r.Create(name, configs[name])
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("create provider %q: %w", name, err)
		}
		res.Register(p)
	}
	return res, nil
}

// DefaultRegistry is the global registry for secret providers. The built-in
// env and file providers are registered.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	_ = r.Register(EnvProviderName, NewEnvProviderFactory())
	_ = r.Register(FileProviderName, NewFileProviderFactory())
	return r
}()

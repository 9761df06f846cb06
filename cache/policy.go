package cache

import "time"

// Policy configures caching behavior shared by every call of a client.
type Policy struct {
	// DefaultTTL is used by calls that declare no TTL of their own.
	// If zero, such calls are not cached.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL. If zero, no maximum is enforced.
	MaxTTL time.Duration

	// SweepInterval makes MemoryCache drop expired entries in the background.
	// If zero, expired entries are only dropped when looked up.
	SweepInterval time.Duration

	// MaxEntries bounds LRUCache. Ignored by other backends.
	// Default: 4096
	MaxEntries int
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 minutes, MaxTTL: none, no sweeping.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxEntries: 4096,
	}
}

// NoCachePolicy returns a policy that caches nothing unless a call declares
// its own TTL.
func NoCachePolicy() Policy {
	return Policy{}
}

// EffectiveTTL returns the TTL to use for a call declaring override.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

func (p Policy) maxEntries() int {
	if p.MaxEntries <= 0 {
		return 4096
	}
	return p.MaxEntries
}

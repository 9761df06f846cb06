package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a bucket name or key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache     = errors.New("cache: cache is nil")
	ErrInvalidKey   = errors.New("cache: key is invalid")
	ErrKeyTooLong   = errors.New("cache: key exceeds max length")
	ErrUnencodable  = errors.New("cache: value cannot be encoded")
	ErrDemux        = errors.New("cache: batch response does not match its demux contract")
	ErrUnresolved   = errors.New("cache: batch items left unresolved")
	ErrInvalidDemux = errors.New("cache: unknown demux mode")
	ErrItemClash    = errors.New("cache: distinct batch items share one name")
)

// Cache stores call results in buckets. A bucket holds every fingerprint of
// one registered call, so dropping a bucket invalidates that call entirely.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Expiry: an entry is served strictly before its expiry and never after.
// - Errors: Get never errors; it returns (nil, false) on miss.
// - Ownership: a Cache instance belongs to one client; shared backends
// must isolate clients by namespace.
type Cache interface {
	// Get retrieves a cached value. Returns (nil, false) on miss or expiry.
	Get(ctx context.Context, bucket, key string) (any, bool)

	// Set stores a value with the given TTL, replacing any previous entry.
	// TTL <= 0 means no caching.
	Set(ctx context.Context, bucket, key string, value any, ttl time.Duration) error

	// Delete removes one entry. Idempotent.
	Delete(ctx context.Context, bucket, key string) error

	// Clear removes every entry of a bucket. Idempotent.
	Clear(ctx context.Context, bucket string) error
}

// ValidateKey checks if a bucket name or key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

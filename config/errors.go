package config

import "errors"

// Sentinel errors for configuration.
var (
	// ErrInvalidBackend is returned for an unknown cache backend name.
	ErrInvalidBackend = errors.New("config: invalid cache backend")

	// ErrMissingRedisAddr is returned when the redis backend has no address.
	ErrMissingRedisAddr = errors.New("config: redis backend requires an address")

	// ErrNegativeDuration is returned for a negative TTL, interval or timeout.
	ErrNegativeDuration = errors.New("config: duration must not be negative")

	// ErrInvalidMaxEntries is returned for a negative LRU bound.
	ErrInvalidMaxEntries = errors.New("config: max_entries must not be negative")

	// ErrUnknownClient is returned for a client name no API is registered under.
	ErrUnknownClient = errors.New("config: unknown client")

	// ErrInvalidSearchBackend is returned for an unknown client search backend.
	ErrInvalidSearchBackend = errors.New("config: invalid search backend")

	// ErrClosed is returned by a Runtime after Close.
	ErrClosed = errors.New("config: runtime is closed")
)

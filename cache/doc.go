// Package cache provides the per-client result cache of API calls.
//
// Entries live in buckets, one bucket per registered call, keyed by a
// fingerprint of the call arguments (see Keyer). Dropping a bucket
// invalidates every cached result of that call at once.
//
// Backends:
//   - MemoryCache: unbounded map with lazy expiry and optional sweeping.
//   - LRUCache: size-bounded, backed by hashicorp/golang-lru.
//   - RedisCache: namespaced keys in Redis with native expiry.
//
// Middleware implements the lookup logic for single-key calls and for batch
// calls, where every argument is cached on its own and only missing items
// are requested.
package cache

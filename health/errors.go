package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNotRetained indicates a cache dropped a sample entry it just stored.
	ErrNotRetained = errors.New("health: cache did not retain the sample entry")
)

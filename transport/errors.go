package transport

import "errors"

// Sentinel errors for transport operations.
var (
	// ErrInvalidBaseURL is returned when the base URL is missing or not absolute.
	ErrInvalidBaseURL = errors.New("transport: base URL is invalid")

	// ErrInvalidKind is returned for an unknown transport kind.
	ErrInvalidKind = errors.New("transport: unknown kind")

	// ErrResponseTooLarge is returned when a body exceeds MaxBodyBytes.
	ErrResponseTooLarge = errors.New("transport: response body too large")
)

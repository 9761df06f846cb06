package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrInvalidPeriod is returned when a window period is not positive or
	// MaxPeriod is below Period.
	ErrInvalidPeriod = errors.New("resilience: window period is invalid")

	// ErrInvalidRequests is returned when a window request count is negative.
	ErrInvalidRequests = errors.New("resilience: window request count is invalid")
)

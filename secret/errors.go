package secret

import "errors"

// Sentinel errors for secret resolution.
var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrInvalidRegistration is returned for an empty provider name or nil factory.
	ErrInvalidRegistration = errors.New("secret: invalid provider registration")

	// ErrDuplicateProvider is returned when a provider name is registered twice.
	ErrDuplicateProvider = errors.New("secret: provider already registered")

	// ErrProviderNotRegistered is returned for an unknown provider name.
	ErrProviderNotRegistered = errors.New("secret: provider is not registered")

	// ErrInvalidRef is returned when a provider name or ref is empty.
	ErrInvalidRef = errors.New("secret: invalid secret reference")

	// ErrNotFound is returned when a provider has no value for a ref.
	ErrNotFound = errors.New("secret: secret not found")

	// ErrEmptySecret is returned by strict resolvers for empty values.
	ErrEmptySecret = errors.New("secret: provider returned empty value")
)

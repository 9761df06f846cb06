package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for API classes and clients.
var (
	// ErrRemote is matched by every *Error raised from an error-shaped
	// response.
	ErrRemote = errors.New("api: remote error")

	// ErrValidation is returned by handlers rejecting their arguments.
	ErrValidation = errors.New("api: invalid arguments")

	// ErrPrivate is matched by the *Error raised when a private call is made
	// on a public plan.
	ErrPrivate = errors.New("api: private call on a public plan")

	// ErrMissingAPIKey is matched by the *Error raised by Client.CheckAPIKey.
	ErrMissingAPIKey = errors.New("api: missing API key")

	// ErrNoResponse is matched by the *Error raised when a handler defers to
	// a response that was never received.
	ErrNoResponse = errors.New("api: no response")

	// ErrNoTransport is returned by Client.Send on a client built without a
	// transport.
	ErrNoTransport = errors.New("api: client has no transport")

	ErrInvalidName         = errors.New("api: invalid call name")
	ErrInvalidSpec         = errors.New("api: invalid call spec")
	ErrDuplicateCall       = errors.New("api: call already registered")
	ErrClassSealed         = errors.New("api: class already built")
	ErrUnknownInvalidation = errors.New("api: invalidated call is not registered")
	ErrNoSuchCall          = errors.New("api: no such call")
	ErrNotCallable         = errors.New("api: node is not callable")
	ErrNoAttribute         = errors.New("api: no such attribute")
	ErrNilClass            = errors.New("api: class is nil")

	ErrInvalidSearchBackend = errors.New("api: invalid search backend")
	ErrInvalidQuery         = errors.New("api: invalid search query")
)

// Error is an error reported by the remote API, or raised by the framework on
// its behalf.
type Error struct {
	Message string
	// Code is the status code carried by the response, 0 when unknown.
	Code int

	kind error
}

// Error renders "message (code)".
func (e *Error) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// Unwrap returns the sentinel classifying e: ErrRemote unless the framework
// raised it for a more specific reason.
func (e *Error) Unwrap() error {
	if e.kind != nil {
		return e.kind
	}
	return ErrRemote
}

// Validation returns an error wrapping ErrValidation. Handlers return it
// before sending anything; validation errors are never cached and do not
// consume throttling quota.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

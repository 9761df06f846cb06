package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Kind selects how bodies are encoded and decoded.
type Kind string

const (
	// KindJSON encodes request bodies and decodes responses as JSON.
	KindJSON Kind = "json"
	// KindText exchanges plain text.
	KindText Kind = "http"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindJSON || k == KindText
}

// Request describes one call to the remote API.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is resolved against the base URL. Absolute URLs are used as is.
	Path string

	Query  url.Values
	Header http.Header

	// Body is JSON encoded for KindJSON. Strings and byte slices are sent
	// verbatim for either kind.
	Body any
}

// Response is the captured result of one Send.
type Response struct {
	// URL is the final request URL.
	URL        string
	StatusCode int
	Header     http.Header

	// Text is the raw body.
	Text string

	// JSON is the decoded body for KindJSON responses. Nil when the body is
	// empty or not valid JSON.
	JSON any
}

// Body returns the decoded JSON body when available, the text otherwise.
func (r *Response) Body() any {
	if r == nil {
		return nil
	}
	if r.JSON != nil {
		return r.JSON
	}
	return r.Text
}

// Transport executes requests against one remote API.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Send must honor cancellation.
// - Errors: a response with any status code is not an error; errors mean no
// usable response was received.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
	BaseURL() string
}

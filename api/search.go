package api

import (
	"context"
	"fmt"
	"regexp"
	"slices"

	"github.com/jmespath/go-jmespath"
	"github.com/ohler55/ojg/jp"

	"github.com/jonwraymond/apicall/observe"
)

// SearchBackend selects the query language of Search.
type SearchBackend string

const (
	// SearchRegex matches a case-insensitive regular expression against the
	// fields of every record under the response's "data" key. The zero value
	// selects it too.
	SearchRegex SearchBackend = "regex"
	// SearchJMESPath evaluates a JMESPath expression.
	SearchJMESPath SearchBackend = "jmespath"
	// SearchJSONPath evaluates a JSONPath expression and returns every match.
	SearchJSONPath SearchBackend = "jsonpath"
)

// SearchBackends lists the valid backends.
var SearchBackends = []SearchBackend{SearchRegex, SearchJMESPath, SearchJSONPath}

// Valid reports whether b is a known backend.
func (b SearchBackend) Valid() bool { return b == "" || slices.Contains(SearchBackends, b) }

func (b SearchBackend) String() string {
	if b == "" {
		return string(SearchRegex)
	}
	return string(b)
}

// WithSearchBackend sets the backend used by Client.Search. Default: SearchRegex
func WithSearchBackend(b SearchBackend) Option {
	return func(o *clientOptions) { o.search = b }
}

// SearchBackend returns the client's search backend.
func (c *Client) SearchBackend() SearchBackend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// SetSearchBackend changes the client's search backend.
func (c *Client) SetSearchBackend(b SearchBackend) error {
	if !b.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSearchBackend, b)
	}
	c.mu.Lock()
	c.search = b
	c.mu.Unlock()
	return nil
}

// Search queries the body of the last response received by the client.
// The last response is shared by every goroutine using the client; callers
// running calls concurrently should pass a call's result to the package
// level Search instead.
func (c *Client) Search(ctx context.Context, query string) (any, error) {
	resp := c.LastResponse()
	if resp == nil {
		return nil, &Error{
			Message: fmt.Sprintf("no response from %s to search", c.baseURL()),
			kind:    ErrNoResponse,
		}
	}
	backend := c.SearchBackend()
	out, err := Search(backend, query, resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Debug(ctx, "search",
		observe.Field{Key: "search.backend", Value: backend.String()},
		observe.Field{Key: "search.query", Value: query})
	return out, nil
}

// Search evaluates query against data, a decoded JSON value, with backend.
//
// SearchRegex returns the records of data["data"] with at least one field
// whose text matches query, ignoring case. JSONPath returns an empty slice
// when nothing matches.
func Search(backend SearchBackend, query string, data any) (any, error) {
	switch backend {
	case SearchJMESPath:
		out, err := jmespath.Search(query, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		return out, nil
	case SearchJSONPath:
		expr, err := jp.ParseString(query)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		out := expr.Get(data)
		if out == nil {
			out = []any{}
		}
		return out, nil
	case SearchRegex, "":
		return searchRecords(query, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSearchBackend, backend)
	}
}

func searchRecords(query string, data any) ([]any, error) {
	re, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	body, _ := data.(map[string]any)
	records, _ := body["data"].([]any)

	out := []any{}
	for _, rec := range records {
		fields, ok := rec.(map[string]any)
		if !ok {
			if re.MatchString(fmt.Sprint(rec)) {
				out = append(out, rec)
			}
			continue
		}
		for _, v := range fields {
			if re.MatchString(fmt.Sprint(v)) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

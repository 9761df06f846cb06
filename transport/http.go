package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPConfig configures an HTTP transport.
type HTTPConfig struct {
	// BaseURL is the absolute URL every request path is resolved against.
	BaseURL string

	// Kind selects JSON or text bodies.
	// Default: KindJSON
	Kind Kind

	// Header is sent with every request.
	Header http.Header

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Timeout bounds a whole round trip.
	// Default: 30s
	Timeout time.Duration

	// MaxBodyBytes limits response bodies.
	// Default: 10 MiB
	MaxBodyBytes int64
}

// DefaultUserAgent is sent when HTTPConfig.UserAgent is empty.
const DefaultUserAgent = "apicall/1.0"

// Validate checks the configuration.
func (c HTTPConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.Kind != "" && !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, c.Kind)
	}
	return nil
}

// HTTP is a Transport over net/http.
type HTTP struct {
	config HTTPConfig
	base   *url.URL
	client *http.Client
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying client. Its Timeout is left as is.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTP) {
		if client != nil {
			t.client = client
		}
	}
}

// NewHTTP creates an HTTP transport.
func NewHTTP(config HTTPConfig, opts ...HTTPOption) (*HTTP, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Kind == "" {
		config.Kind = KindJSON
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 10 << 20
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	base, _ := url.Parse(strings.TrimRight(config.BaseURL, "/") + "/")
	t := &HTTP{
		config: config,
		base:   base,
		client: &http.Client{Timeout: config.Timeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// BaseURL returns the configured base URL.
func (t *HTTP) BaseURL() string {
	return t.config.BaseURL
}

// Kind returns the configured kind.
func (t *HTTP) Kind() Kind {
	return t.config.Kind
}

// Send performs one round trip. Non-2xx statuses are returned as responses.
func (t *HTTP) Send(ctx context.Context, req Request) (*Response, error) {
	target, err := t.resolve(req)
	if err != nil {
		return nil, err
	}

	body, contentType, err := t.encode(req.Body)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}

	for k, vs := range t.config.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.config.UserAgent)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if t.config.Kind == KindJSON && httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	if int64(len(data)) > t.config.MaxBodyBytes {
		return nil, ErrResponseTooLarge
	}

	out := &Response{
		URL:        target,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Text:       string(data),
	}
	if t.config.Kind == KindJSON && len(bytes.TrimSpace(data)) > 0 {
		var decoded any
		if json.Unmarshal(data, &decoded) == nil {
			out.JSON = decoded
		}
	}
	return out, nil
}

func (t *HTTP) resolve(req Request) (string, error) {
	ref, err := url.Parse(strings.TrimLeft(req.Path, "/"))
	if err != nil {
		return "", fmt.Errorf("transport: invalid path %q: %w", req.Path, err)
	}
	u := t.base.ResolveReference(ref)
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (t *HTTP) encode(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "text/plain; charset=utf-8", nil
	case []byte:
		return bytes.NewReader(b), "application/octet-stream", nil
	case url.Values:
		return strings.NewReader(b.Encode()), "application/x-www-form-urlencoded", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("transport: encode body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

var _ Transport = (*HTTP)(nil)

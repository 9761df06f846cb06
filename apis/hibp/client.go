package hibp

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/transport"
)

// Config configures a HaveIBeenPwned or PwnedPasswords client.
type Config struct {
	// APIKey unlocks account lookups. Ignored by PwnedPasswords.
	APIKey string
	// BaseURL defaults to DefaultBaseURL or DefaultPasswordsURL.
	BaseURL string
	// App names the calling application in the User-Agent header.
	App     string
	Timeout time.Duration
	// Class defaults to the package class.
	Class *api.Class
}

// Client is a HaveIBeenPwned client.
type Client struct {
	*api.Client
}

// New creates a HaveIBeenPwned client. Without an API key the client is
// public and account lookups fail.
func New(cfg Config, opts ...api.Option) (*Client, error) {
	c, err := newClient(cfg, Class, DefaultBaseURL, transport.KindJSON,
		append([]api.Option{api.WithAPIKey(cfg.APIKey), api.WithPublic(cfg.APIKey == "")}, opts...))
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}

// BreachedAccount returns the breaches of an account. Named options of the
// breachedaccount call (truncate_response, include_unverified, domain) are
// available through Invoke.
func (c *Client) BreachedAccount(ctx context.Context, account string) ([]any, error) {
	return asList(c.Call(ctx, "breachedaccount", account))
}

// PasteAccount returns the pastes of an account.
func (c *Client) PasteAccount(ctx context.Context, account string) ([]any, error) {
	return asList(c.Call(ctx, "pasteaccount", account))
}

// Breach returns one breach by name.
func (c *Client) Breach(ctx context.Context, name string) (map[string]any, error) {
	v, err := c.Call(ctx, "breach", name)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("hibp: unexpected response %T", v)
	}
	return m, nil
}

// Breaches returns every breach, or those of domain when it is not empty.
func (c *Client) Breaches(ctx context.Context, domain string) ([]any, error) {
	if domain == "" {
		return asList(c.Call(ctx, "breaches"))
	}
	return asList(c.Call(ctx, "breaches", domain))
}

// DataClasses returns the data classes of breached records.
func (c *Client) DataClasses(ctx context.Context) ([]any, error) {
	return asList(c.Call(ctx, "dataclasses"))
}

// PasswordsClient is a PwnedPasswords client.
type PasswordsClient struct {
	*api.Client
}

// NewPasswords creates a PwnedPasswords client.
func NewPasswords(cfg Config, opts ...api.Option) (*PasswordsClient, error) {
	c, err := newClient(cfg, PasswordsClass, DefaultPasswordsURL, transport.KindText, opts)
	if err != nil {
		return nil, err
	}
	return &PasswordsClient{Client: c}, nil
}

// Count returns how many times password appears in known breaches.
func (c *PasswordsClient) Count(ctx context.Context, password string) (int, error) {
	v, err := c.Call(ctx, "count", password)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("hibp: unexpected count %T", v)
	}
}

// Counts returns the count of each password.
func (c *PasswordsClient) Counts(ctx context.Context, passwords ...string) (map[string]int, error) {
	out := make(map[string]int, len(passwords))
	for _, p := range passwords {
		n, err := c.Count(ctx, p)
		if err != nil {
			return nil, err
		}
		out[p] = n
	}
	return out, nil
}

func newClient(cfg Config, class *api.Class, baseURL string, kind transport.Kind, opts []api.Option) (*api.Client, error) {
	if cfg.Class != nil {
		class = cfg.Class
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	tr, err := transport.NewHTTP(transport.HTTPConfig{
		BaseURL:   baseURL,
		Kind:      kind,
		UserAgent: cfg.App,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return api.NewClient(class, tr, opts...)
}

func asList(v any, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("hibp: unexpected response %T", v)
	}
	return l, nil
}

package shodan

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/transport"
)

// Config configures a Shodan client.
type Config struct {
	APIKey string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Class defaults to the package Class.
	Class *api.Class
}

// Client is a Shodan client. Every registered call is reachable through the
// embedded *api.Client; the methods below are typed shortcuts.
type Client struct {
	*api.Client
}

// New creates a client. Clients start on a public plan until Info reports
// otherwise.
func New(cfg Config, opts ...api.Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	class := cfg.Class
	if class == nil {
		class = Class
	}
	tr, err := transport.NewHTTP(transport.HTTPConfig{
		BaseURL:   cfg.BaseURL,
		Kind:      transport.KindJSON,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	base := []api.Option{api.WithAPIKey(cfg.APIKey), api.WithPublic(true)}
	c, err := api.NewClient(class, tr, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c}, nil
}

// Info returns the API plan of the key and applies it to the client.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	return asMap(c.Call(ctx, "info"))
}

// AccountProfile returns the account linked to the API key.
func (c *Client) AccountProfile(ctx context.Context) (map[string]any, error) {
	return asMap(c.Call(ctx, "account.profile"))
}

// DNSDomain returns the DNS entries of a domain. Private plans only.
func (c *Client) DNSDomain(ctx context.Context, domain string) (map[string]any, error) {
	return asMap(c.Call(ctx, "dns.domain", domain))
}

// DNSResolve returns the IP address of each hostname. Hostnames Shodan could
// not resolve are absent from the result.
func (c *Client) DNSResolve(ctx context.Context, hostnames ...string) (map[string]any, error) {
	return asMap(c.Call(ctx, "dns.resolve", anySlice(hostnames)...))
}

// DNSReverse returns the hostnames of each IP address.
func (c *Client) DNSReverse(ctx context.Context, ips ...string) (map[string]any, error) {
	return asMap(c.Call(ctx, "dns.reverse", anySlice(ips)...))
}

// Honeyscore returns the probability that ip is a honeypot.
func (c *Client) Honeyscore(ctx context.Context, ip string) (float64, error) {
	v, err := c.Call(ctx, "labs.honeyscore", ip)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("shodan: unexpected honeyscore %T", v)
	}
}

// Host returns the services found on ip.
func (c *Client) Host(ctx context.Context, ip string, history, minify bool) (map[string]any, error) {
	args := api.Positional(ip).With("history", history).With("minify", minify)
	return asMap(c.Invoke(ctx, "shodan.host", args))
}

func anySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func asMap(v any, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("shodan: unexpected response %T", v)
	}
	return m, nil
}

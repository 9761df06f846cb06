package shodan

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/cache"
	"github.com/jonwraymond/apicall/observe"
	"github.com/jonwraymond/apicall/transport"
)

// DefaultBaseURL is the Shodan REST endpoint.
const DefaultBaseURL = "https://api.shodan.io"

type plan struct {
	name   string
	public bool
}

var plans = map[string]plan{
	"basic":      {"Freelancer API", true},
	"corp":       {"Corporate API", false},
	"dev":        {"Membership", true},
	"oss":        {"Free", true},
	"plus":       {"Small Business API", false},
	"stream-100": {"Enterprise", false},
}

// Class is the Shodan API class shared by every client of the process.
var Class = NewClass()

// NewClass builds a Shodan API class. Most programs use Class; a separate
// class gets its own rate window.
func NewClass(opts ...api.ClassOption) *api.Class {
	base := []api.ClassOption{
		api.WithRequestThrottle(api.Throttle{Period: time.Second}),
		api.WithClassNoError("No information available"),
	}
	return api.NewClass("shodan", append(base, opts...)...).MustRegister(
		api.Spec{
			Name:    "account_profile",
			Doc:     "Information about the account linked to the API key.",
			Cache:   &api.CacheSpec{TTL: time.Hour},
			Handler: get("/account/profile"),
		},
		api.Spec{
			Name:        "dns_domain",
			Doc:         "Subdomains and other DNS entries of a domain. Uses 1 query credit.",
			Private:     true,
			Cache:       &api.CacheSpec{TTL: 5 * time.Minute},
			Invalidates: []string{"account_profile", "info"},
			Handler:     dnsDomain,
		},
		api.Spec{
			Name:    "dns_resolve",
			Doc:     "IP addresses of hostnames.",
			Kind:    api.KindBatch,
			Demux:   cache.DemuxMapping,
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute, Retries: 3},
			Handler: dnsResolve,
		},
		api.Spec{
			Name:    "dns_reverse",
			Doc:     "Hostnames defined for IP addresses.",
			Kind:    api.KindBatch,
			Demux:   cache.DemuxMapping,
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute, Retries: 3},
			Handler: dnsReverse,
		},
		api.Spec{
			Name:    "info",
			Doc:     "Plan of the API key; applies it to the client.",
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute},
			Handler: apiInfo,
		},
		api.Spec{
			Name:    "labs_honeyscore",
			Doc:     "Honeypot probability of a host, from 0 to 1.",
			Cache:   &api.CacheSpec{TTL: time.Hour},
			Handler: honeyscore,
		},
		api.Spec{
			Name:    "notifiers",
			Doc:     "Notifiers created by the user.",
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute},
			Handler: get("/notifier"),
		},
		api.Spec{
			Name:    "notifier",
			Doc:     "One notifier.",
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute},
			Handler: notifier("GET"),
		},
		api.Spec{
			Name:        "notifier_delete",
			Doc:         "Removes a notifier.",
			Invalidates: []string{"notifiers", "notifier"},
			Handler:     notifier("DELETE"),
		},
		api.Spec{
			Name:    "notifier_provider",
			Doc:     "Notification providers.",
			Cache:   &api.CacheSpec{TTL: 24 * time.Hour},
			Handler: get("/notifier/provider"),
		},
		api.Spec{
			Name:    "shodan_host",
			Doc:     "Services found on a host.",
			Cache:   &api.CacheSpec{TTL: time.Hour},
			Handler: host,
		},
		api.Spec{
			Name:    "shodan_host_count",
			Doc:     "Number of results of a search, with facets. Uses no credit.",
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute},
			Handler: hostCount,
		},
		api.Spec{
			Name:        "shodan_host_search",
			Doc:         "Searches Shodan. May use query credits.",
			Cache:       &api.CacheSpec{TTL: 5 * time.Minute},
			Invalidates: []string{"account_profile", "info"},
			Handler:     hostSearch,
		},
		api.Spec{
			Name:    "shodan_ports",
			Doc:     "Ports the crawlers look for.",
			Cache:   &api.CacheSpec{TTL: 24 * time.Hour},
			Handler: get("/shodan/ports"),
		},
		api.Spec{
			Name:    "shodan_protocols",
			Doc:     "Protocols usable in Internet scans.",
			Cache:   &api.CacheSpec{TTL: 24 * time.Hour},
			Handler: get("/shodan/protocols"),
		},
		api.Spec{
			Name:    "tools_httpheaders",
			Doc:     "HTTP headers sent by this client.",
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute},
			Handler: get("/tools/httpheaders"),
		},
		api.Spec{
			Name:    "tools_myip",
			Doc:     "Public IP address of this client.",
			Cache:   &api.CacheSpec{TTL: 5 * time.Minute},
			Handler: get("/tools/myip"),
		},
	)
}

// send issues one request with the API key appended to the query.
func send(ctx context.Context, c *api.Client, method, path string, query url.Values) (*transport.Response, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("key", c.APIKey())
	return c.Send(ctx, transport.Request{Method: method, Path: path, Query: q})
}

// do sends a request whose body becomes the call result.
func do(ctx context.Context, c *api.Client, method, path string, query url.Values) error {
	_, err := send(ctx, c, method, path, query)
	return err
}

func get(path string) api.Handler {
	return func(ctx context.Context, c *api.Client, _ api.Args) (any, error) {
		return nil, do(ctx, c, "GET", path, nil)
	}
}

func dnsDomain(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	domain, ok := args.String(0)
	if !ok || !validDomain(domain) {
		return nil, api.Validation("bad domain name %v", args.Positional)
	}
	return nil, do(ctx, c, "GET", "/dns/domain/"+domain, nil)
}

func dnsResolve(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	hostnames, ok := args.Strings()
	if !ok || len(hostnames) == 0 {
		return nil, api.Validation("hostnames must be strings")
	}
	for _, h := range hostnames {
		if !validHostname(h) {
			return nil, api.Validation("bad hostname %q", h)
		}
	}
	return nil, do(ctx, c, "GET", "/dns/resolve", url.Values{"hostnames": {strings.Join(hostnames, ",")}})
}

func dnsReverse(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	ips, ok := args.Strings()
	if !ok || len(ips) == 0 {
		return nil, api.Validation("IP addresses must be strings")
	}
	for _, ip := range ips {
		if !validIP(ip) {
			return nil, api.Validation("bad IP address %q", ip)
		}
	}
	return nil, do(ctx, c, "GET", "/dns/reverse", url.Values{"ips": {strings.Join(ips, ",")}})
}

func apiInfo(ctx context.Context, c *api.Client, _ api.Args) (any, error) {
	resp, err := send(ctx, c, "GET", "/api-info", nil)
	if err != nil {
		return nil, err
	}
	body, _ := resp.Body().(map[string]any)
	if name, ok := body["plan"].(string); ok {
		if p, known := plans[name]; known {
			c.SetPublic(p.public)
			c.SetThrottling(p.public)
			c.Logger().Debug(ctx, "API plan",
				observe.Field{Key: "plan", Value: p.name},
				observe.Field{Key: "public", Value: p.public})
		}
	}
	return nil, nil
}

func honeyscore(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	ip, ok := args.String(0)
	if !ok || !validIP(ip) {
		return nil, api.Validation("bad IP address %v", args.Positional)
	}
	return nil, do(ctx, c, "GET", "/labs/honeyscore/"+ip, nil)
}

func notifier(method string) api.Handler {
	return func(ctx context.Context, c *api.Client, args api.Args) (any, error) {
		id, ok := args.String(0)
		if !ok || !validID(id) {
			return nil, api.Validation("bad ID format, should be: [0-9A-Z]{16}")
		}
		return nil, do(ctx, c, method, "/notifier/"+id, nil)
	}
}

func host(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	ip, ok := args.String(0)
	if !ok || !validIP(ip) {
		return nil, api.Validation("bad IP address %v", args.Positional)
	}
	q := url.Values{}
	for _, flag := range []string{"history", "minify"} {
		v, err := boolArg(args, flag)
		if err != nil {
			return nil, err
		}
		if v {
			q.Set(flag, "true")
		}
	}
	return nil, do(ctx, c, "GET", "/shodan/host/"+ip, q)
}

func hostCount(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	all, ok := args.Strings()
	if !ok || len(all) == 0 || all[0] == "" {
		return nil, api.Validation("a query string is required")
	}
	q := url.Values{"query": {all[0]}}
	if facets := strings.Join(all[1:], ","); facets != "" {
		q.Set("facets", facets)
	}
	return nil, do(ctx, c, "GET", "/shodan/host/count", q)
}

func hostSearch(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	all, ok := args.Strings()
	if !ok || len(all) == 0 || all[0] == "" {
		return nil, api.Validation("a query string is required")
	}
	q := url.Values{"query": {all[0]}}
	facets := strings.Join(all[1:], ",")
	page, hasPage := args.Lookup("page")
	minify, err := boolArg(args, "minify")
	if err != nil {
		return nil, err
	}

	if c.Public() {
		if hasPage || minify || facets != "" {
			return nil, &api.Error{Message: "please upgrade your API plan to use filters or paging"}
		}
	} else {
		if hasPage {
			n, ok := page.(int)
			if !ok || n < 1 {
				return nil, api.Validation("page must be a positive integer")
			}
			q.Set("page", strconv.Itoa(n))
		}
		if minify {
			q.Set("minify", "true")
		}
		if facets != "" {
			q.Set("facets", facets)
		}
	}
	return nil, do(ctx, c, "GET", "/shodan/host/search", q)
}

func boolArg(args api.Args, name string) (bool, error) {
	v, ok := args.Lookup(name)
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, api.Validation("%s must be a boolean", name)
	}
	return b, nil
}

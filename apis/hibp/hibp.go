package hibp

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/resilience"
	"github.com/jonwraymond/apicall/transport"
)

// DefaultBaseURL is the HaveIBeenPwned endpoint.
const DefaultBaseURL = "https://haveibeenpwned.com"

// DefaultRetryDelay is the wait before re-sending a rate-limited request.
const DefaultRetryDelay = 2 * time.Second

const apiKeyHeader = "hibp-api-key"

var errTooManyRequests = errors.New("hibp: too many requests")

// Class is the HaveIBeenPwned API class shared by every client of the
// process.
var Class = NewClass(DefaultRetryDelay)

var domainRE = regexp.MustCompile(`^(?i)([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// NewClass builds a HaveIBeenPwned API class. Rate-limited requests are
// re-sent up to three times, retryDelay apart.
func NewClass(retryDelay time.Duration, opts ...api.ClassOption) *api.Class {
	s := &sender{retry: resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 4,
		Delay:       retryDelay,
		RetryIf:     func(err error) bool { return errors.Is(err, errTooManyRequests) },
	})}
	base := []api.ClassOption{api.WithRequestThrottle(api.Throttle{Period: time.Second, Requests: 1000})}
	return api.NewClass("haveibeenpwned", append(base, opts...)...).MustRegister(
		api.Spec{
			Name:    "breachedaccount",
			Doc:     "Breaches an account has been involved in.",
			Private: true,
			Cache:   &api.CacheSpec{TTL: time.Hour},
			Handler: s.breachedAccount,
		},
		api.Spec{
			Name:    "breach",
			Doc:     "A single breach by name.",
			Cache:   &api.CacheSpec{TTL: 24 * time.Hour},
			Handler: s.breach,
		},
		api.Spec{
			Name:    "breaches",
			Doc:     "Every breach in the system, optionally filtered by domain.",
			Cache:   &api.CacheSpec{TTL: 24 * time.Hour},
			Handler: s.breaches,
		},
		api.Spec{
			Name:    "dataclasses",
			Doc:     "Data classes of breached records.",
			Cache:   &api.CacheSpec{TTL: 24 * time.Hour},
			Handler: s.get("/dataclasses"),
		},
		api.Spec{
			Name:    "pasteaccount",
			Doc:     "Pastes related to an account.",
			Private: true,
			Cache:   &api.CacheSpec{TTL: time.Hour},
			Handler: s.pasteAccount,
		},
	)
}

type sender struct {
	retry *resilience.Retry
}

// send issues one v3 request, re-sending it while the API answers 429. Other
// error bodies are raised as *api.Error. A 404 on an account lookup means the
// account is clean and yields an empty list.
func (s *sender) send(ctx context.Context, c *api.Client, path string, query url.Values, keyed bool) (any, error) {
	req := transport.Request{Method: http.MethodGet, Path: "/api/v3" + path, Query: query}
	if keyed {
		req.Header = http.Header{apiKeyHeader: {c.APIKey()}}
	}

	var resp *transport.Response
	err := s.retry.Execute(ctx, func(ctx context.Context, attempt int) error {
		var err error
		if resp, err = c.Send(ctx, req); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			c.Logger().Debug(ctx, "rate limited, retrying")
			return errTooManyRequests
		}
		return nil
	})
	if errors.Is(err, errTooManyRequests) {
		return nil, &api.Error{Message: "rate limit exceeded", Code: http.StatusTooManyRequests}
	}
	if err != nil {
		return nil, err
	}

	if keyed && resp.StatusCode == http.StatusNotFound {
		return []any{}, nil
	}
	if body, ok := resp.JSON.(map[string]any); ok {
		if code, ok := body["statusCode"].(float64); ok && code != 0 {
			msg, _ := body["message"].(string)
			return nil, &api.Error{Message: msg, Code: int(code)}
		}
	}
	return nil, nil
}

func (s *sender) get(path string) api.Handler {
	return func(ctx context.Context, c *api.Client, _ api.Args) (any, error) {
		return s.send(ctx, c, path, nil, false)
	}
}

func (s *sender) breachedAccount(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	if err := c.CheckAPIKey("missing hibp-api-key"); err != nil {
		return nil, err
	}
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	truncate, err := boolArg(args, "truncate_response", true)
	if err != nil {
		return nil, err
	}
	unverified, err := boolArg(args, "include_unverified", true)
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"truncateResponse":  {strconv.FormatBool(truncate)},
		"includeUnverified": {strconv.FormatBool(unverified)},
	}
	if v, ok := args.Lookup("domain"); ok {
		domain, isString := v.(string)
		if !isString || !domainRE.MatchString(domain) {
			return nil, api.Validation("bad domain name %v", v)
		}
		q.Set("domain", domain)
	}
	return s.send(ctx, c, "/breachedaccount/"+url.PathEscape(account), q, true)
}

func (s *sender) pasteAccount(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	if err := c.CheckAPIKey("missing hibp-api-key"); err != nil {
		return nil, err
	}
	account, err := accountArg(args)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, c, "/pasteaccount/"+url.PathEscape(account), nil, true)
}

func (s *sender) breach(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	name, ok := args.String(0)
	if !ok || name == "" {
		return nil, api.Validation("a breach name is required")
	}
	return s.send(ctx, c, "/breach/"+url.PathEscape(name), nil, false)
}

func (s *sender) breaches(ctx context.Context, c *api.Client, args api.Args) (any, error) {
	var q url.Values
	if domain, ok := args.String(0); ok && domain != "" {
		if !domainRE.MatchString(domain) {
			return nil, api.Validation("bad domain name %q", domain)
		}
		q = url.Values{"domain": {domain}}
	}
	return s.send(ctx, c, "/breaches", q, false)
}

func accountArg(args api.Args) (string, error) {
	account, ok := args.String(0)
	if !ok {
		return "", api.Validation("an account is required")
	}
	if _, err := mail.ParseAddress(account); err != nil {
		return "", api.Validation("bad email address %q", account)
	}
	return account, nil
}

func boolArg(args api.Args, name string, def bool) (bool, error) {
	v, ok := args.Lookup(name)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, api.Validation("bad boolean value for %s", name)
	}
	return b, nil
}

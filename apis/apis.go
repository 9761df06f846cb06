// Package apis names the concrete API clients so that configuration files
// and the command line can build them by name.
package apis

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/apis/hibp"
	"github.com/jonwraymond/apicall/apis/shodan"
)

// ErrUnknownClient is returned for names no factory is registered under.
var ErrUnknownClient = errors.New("apis: unknown client")

// Settings are the per-client settings shared by every concrete API.
type Settings struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Factory builds one client.
type Factory func(s Settings, opts ...api.Option) (*api.Client, error)

var factories = map[string]Factory{
	"shodan": func(s Settings, opts ...api.Option) (*api.Client, error) {
		c, err := shodan.New(shodan.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, UserAgent: s.UserAgent, Timeout: s.Timeout}, opts...)
		if err != nil {
			return nil, err
		}
		return c.Client, nil
	},
	"haveibeenpwned": func(s Settings, opts ...api.Option) (*api.Client, error) {
		c, err := hibp.New(hibp.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, App: s.UserAgent, Timeout: s.Timeout}, opts...)
		if err != nil {
			return nil, err
		}
		return c.Client, nil
	},
	"pwnedpasswords": func(s Settings, opts ...api.Option) (*api.Client, error) {
		c, err := hibp.NewPasswords(hibp.Config{BaseURL: s.BaseURL, App: s.UserAgent, Timeout: s.Timeout}, opts...)
		if err != nil {
			return nil, err
		}
		return c.Client, nil
	},
}

// New builds the client registered under name.
func New(name string, s Settings, opts ...api.Option) (*api.Client, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClient, name)
	}
	return f(s, opts...)
}

// Class returns the API class of the client registered under name.
func Class(name string) (*api.Class, error) {
	switch name {
	case "shodan":
		return shodan.Class, nil
	case "haveibeenpwned":
		return hibp.Class, nil
	case "pwnedpasswords":
		return hibp.PasswordsClass, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownClient, name)
}

// Names returns the registered client names, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Known reports whether a client is registered under name.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

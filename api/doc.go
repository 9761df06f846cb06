// Package api turns handler functions into a hierarchical, cached,
// rate-limited call surface shared by every client of an API class.
//
// # Classes and calls
//
// A Class registers call specs. Each spec name is a list of tokens joined by
// underscores; the tokens become the levels of the call tree, so
// "dns_resolve" is reachable as dns.resolve:
//
//	var Shodan = api.NewClass("shodan").MustRegister(api.Spec{
//	    Name:    "dns_resolve",
//	    Kind:    api.KindBatch,
//	    Demux:   cache.DemuxMapping,
//	    Cache:   &api.CacheSpec{TTL: 5 * time.Minute, Retries: 3},
//	    Handler: resolve,
//	})
//
// A class built with WithParent inherits every call it does not declare
// itself. Spec.Invalidates names calls whose cache is cleared after a
// successful call; names resolve from the concrete class upward.
//
// # Clients
//
// NewClient binds the class tree to one instance with its own cache, API key
// and toggles:
//
//	c, err := api.NewClient(Shodan, tr, api.WithAPIKey(key))
//	ips, err := c.Call(ctx, "dns.resolve", "example.com", "example.org")
//	p, _ := c.Root().Get("dns.resolve")
//	ips, err = p.Call(ctx, "example.com", api.Force)
//
// Handlers receive the client. A handler returning a nil value defers to the
// response of its last Client.Send. Error-shaped results, maps with a
// non-nil "error" field, become *Error values; they are cached like any
// other result and raised again on every hit.
//
// # Throttling
//
// Calls declaring a Throttle admit through the class window, shared by all
// clients of the class. Calls rejected by validation (Validation) or by
// the plan (Spec.Private) do not consume quota.
package api

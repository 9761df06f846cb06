package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/apicall/observe"
)

// Proxy is a node of the call tree bound to one client. Calling a proxy runs
// the node's call on behalf of its owner.
type Proxy struct {
	owner    *Client
	node     *Node
	children map[string]*Proxy
}

func bind(owner *Client, n *Node) *Proxy {
	p := &Proxy{owner: owner, node: n, children: make(map[string]*Proxy, len(n.order))}
	for _, child := range n.order {
		p.children[child.token] = bind(owner, child)
	}
	return p
}

// Owner returns the client the proxy is bound to.
func (p *Proxy) Owner() *Client { return p.owner }

// Path returns the dotted path of the proxy.
func (p *Proxy) Path() string { return p.node.path }

// Spec returns the call at the proxy, or nil.
func (p *Proxy) Spec() *Spec { return p.node.spec }

// IsLeaf reports whether the proxy is callable.
func (p *Proxy) IsLeaf() bool { return p.node.spec != nil }

// Children returns the child tokens in declaration order.
func (p *Proxy) Children() []string {
	out := make([]string, len(p.node.order))
	for i, n := range p.node.order {
		out[i] = n.token
	}
	return out
}

// Child returns the child proxy for token.
func (p *Proxy) Child(token string) (*Proxy, error) {
	child, ok := p.children[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchCall, p.join(token))
	}
	return child, nil
}

// Get returns the descendant proxy at a dotted path relative to p.
func (p *Proxy) Get(path string) (*Proxy, error) {
	if path == "" {
		return p, nil
	}
	cur := p
	for _, tok := range strings.Split(path, ".") {
		next, err := cur.Child(tok)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Call invokes the proxy's call with positional arguments.
func (p *Proxy) Call(ctx context.Context, args ...any) (any, error) {
	return p.Invoke(ctx, Positional(args...))
}

// Invoke invokes the proxy's call.
func (p *Proxy) Invoke(ctx context.Context, args Args) (any, error) {
	if p.node.spec == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotCallable, p.node.path)
	}
	return p.owner.invoke(ctx, p.node.spec, args)
}

// Logger returns the owner's logger.
func (p *Proxy) Logger() observe.Logger { return p.owner.Logger() }

// ToggleCaching flips the owner's cache switch.
func (p *Proxy) ToggleCaching() bool { return p.owner.ToggleCaching() }

// ToggleThrottling flips the owner's throttling switch.
func (p *Proxy) ToggleThrottling() bool { return p.owner.ToggleThrottling() }

// Attr returns an attribute of the owner. Only logger, cache_enabled,
// throttling_enabled, public and last_response are exposed.
func (p *Proxy) Attr(name string) (any, error) {
	switch name {
	case "logger":
		return p.owner.Logger(), nil
	case "cache_enabled":
		return p.owner.CacheEnabled(), nil
	case "throttling_enabled":
		return p.owner.ThrottlingEnabled(), nil
	case "public":
		return p.owner.Public(), nil
	case "last_response":
		return p.owner.LastResponse(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoAttribute, name)
	}
}

func (p *Proxy) join(token string) string {
	if p.node.path == "" {
		return token
	}
	return p.node.path + "." + token
}

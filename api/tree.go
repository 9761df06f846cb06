package api

import (
	"fmt"
	"strings"
)

// Tree is the immutable call tree of a class.
type Tree struct {
	class    *Class
	root     *Node
	specs    []*Spec
	resolved map[string]*Spec
}

// Node is one level of a call tree. A node may both be callable and have
// children.
type Node struct {
	token    string
	path     string
	spec     *Spec
	children map[string]*Node
	order    []*Node
}

func newTree(c *Class, resolved map[string]*Spec) *Tree {
	return &Tree{
		class:    c,
		root:     &Node{children: make(map[string]*Node)},
		resolved: resolved,
	}
}

func (t *Tree) insert(s *Spec) error {
	n := t.root
	for _, tok := range s.tokens() {
		child, ok := n.children[tok]
		if !ok {
			path := tok
			if n.path != "" {
				path = n.path + "." + tok
			}
			child = &Node{token: tok, path: path, children: make(map[string]*Node)}
			n.children[tok] = child
			n.order = append(n.order, child)
		}
		n = child
	}
	if n.spec != nil {
		return fmt.Errorf("%w: %s collides with %s", ErrDuplicateCall, s.ID(), n.spec.ID())
	}
	n.spec = s
	t.specs = append(t.specs, s)
	return nil
}

// Class returns the class the tree was built for.
func (t *Tree) Class() *Class { return t.class }

// Root returns the root node. It is never callable.
func (t *Tree) Root() *Node { return t.root }

// Specs returns the calls in insertion order.
func (t *Tree) Specs() []*Spec {
	return append([]*Spec(nil), t.specs...)
}

// Paths returns the dotted paths of every call in insertion order.
func (t *Tree) Paths() []string {
	out := make([]string, len(t.specs))
	for i, s := range t.specs {
		out[i] = s.Path()
	}
	return out
}

// Lookup returns the call at a dotted path.
func (t *Tree) Lookup(path string) (*Spec, bool) {
	n, ok := t.root.find(path)
	if !ok || n.spec == nil {
		return nil, false
	}
	return n.spec, true
}

// Resolve returns the call registered under name as seen from the tree's
// class.
func (t *Tree) Resolve(name string) (*Spec, bool) {
	s, ok := t.resolved[name]
	return s, ok
}

func (n *Node) find(path string) (*Node, bool) {
	if path == "" {
		return n, true
	}
	cur := n
	for _, tok := range strings.Split(path, ".") {
		next, ok := cur.children[tok]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Token returns the node's last path token.
func (n *Node) Token() string { return n.token }

// Path returns the node's dotted path.
func (n *Node) Path() string { return n.path }

// Spec returns the call at the node, or nil.
func (n *Node) Spec() *Spec { return n.spec }

// IsLeaf reports whether the node is callable.
func (n *Node) IsLeaf() bool { return n.spec != nil }

// Children returns the child nodes in declaration order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.order...)
}

package api

import (
	"fmt"
	"sync"

	"github.com/jonwraymond/apicall/resilience"
)

// Class is an API class: a named set of call specs, optionally inheriting the
// calls of a parent class.
//
// Every client of a class shares the class window, so throttles model one
// account-level quota. A class is sealed by its first Build; registering
// afterwards fails with ErrClassSealed.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: Register copies the spec; later changes to the caller's
// value have no effect.
type Class struct {
	name            string
	parent          *Class
	requestThrottle *Throttle
	noError         []string
	window          *resilience.Window

	mu     sync.Mutex
	specs  []*Spec
	byName map[string]*Spec
	sealed bool
	tree   *Tree
}

// ClassOption configures a Class.
type ClassOption func(*Class)

// WithParent makes the class inherit every call of parent it does not
// declare itself.
func WithParent(parent *Class) ClassOption {
	return func(c *Class) {
		c.parent = parent
	}
}

// WithRequestThrottle throttles every Client.Send of the class's clients.
func WithRequestThrottle(t Throttle) ClassOption {
	return func(c *Class) {
		c.requestThrottle = &t
	}
}

// WithClassNoError lists error messages that never denote a failure for any
// call of the class.
func WithClassNoError(phrases ...string) ClassOption {
	return func(c *Class) {
		c.noError = append(c.noError, phrases...)
	}
}

// WithWindow replaces the class window. Intended for tests.
func WithWindow(w *resilience.Window) ClassOption {
	return func(c *Class) {
		if w != nil {
			c.window = w
		}
	}
}

// NewClass creates an empty class.
func NewClass(name string, opts ...ClassOption) *Class {
	c := &Class{
		name:   name,
		byName: make(map[string]*Spec),
		window: resilience.NewWindow(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Parent returns the parent class, or nil.
func (c *Class) Parent() *Class { return c.parent }

// Window returns the rate window shared by the class's clients.
func (c *Class) Window() *resilience.Window { return c.window }

// Register adds a call to the class.
func (c *Class) Register(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return fmt.Errorf("%w: %s", ErrClassSealed, c.name)
	}
	if _, ok := c.byName[spec.Name]; ok {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateCall, c.name, spec.Name)
	}

	s := spec
	s.class = c
	s.order = len(c.specs)
	s.Invalidates = append([]string(nil), spec.Invalidates...)
	s.NoError = append([]string(nil), spec.NoError...)
	c.specs = append(c.specs, &s)
	c.byName[s.Name] = &s
	return nil
}

// MustRegister is like Register but panics on error. It simplifies
// package-level class declarations.
func (c *Class) MustRegister(specs ...Spec) *Class {
	for _, s := range specs {
		if err := c.Register(s); err != nil {
			panic(err)
		}
	}
	return c
}

// Resolve returns the spec registered under name, walking from c up the
// parent chain. The nearest declaration wins.
func (c *Class) Resolve(name string) (*Spec, bool) {
	for cl := c; cl != nil; cl = cl.parent {
		cl.mu.Lock()
		s, ok := cl.byName[name]
		cl.mu.Unlock()
		if ok {
			return s, true
		}
	}
	return nil, false
}

// chain returns the classes from the root ancestor down to c.
func (c *Class) chain() []*Class {
	var out []*Class
	for cl := c; cl != nil; cl = cl.parent {
		out = append([]*Class{cl}, out...)
	}
	return out
}

// Build seals the class and its ancestors and returns the call tree. The
// tree is built once; later calls return the same value.
//
// Calls are inserted by depth from the root class, then by registration
// order, so inherited calls come before the class's own.
func (c *Class) Build() (*Tree, error) {
	c.mu.Lock()
	if c.tree != nil {
		t := c.tree
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	chain := c.chain()
	for _, cl := range chain {
		cl.mu.Lock()
		cl.sealed = true
		cl.mu.Unlock()
	}

	var ordered []*Spec
	resolved := make(map[string]*Spec)
	for _, cl := range chain {
		for _, s := range cl.specs {
			if eff, _ := c.Resolve(s.Name); eff == s {
				ordered = append(ordered, s)
				resolved[s.Name] = s
			}
		}
	}

	for _, s := range ordered {
		for _, name := range s.Invalidates {
			if _, ok := resolved[name]; !ok {
				return nil, fmt.Errorf("%w: %s invalidates %s", ErrUnknownInvalidation, s.ID(), name)
			}
		}
	}

	t := newTree(c, resolved)
	for _, s := range ordered {
		if err := t.insert(s); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tree == nil {
		c.tree = t
	}
	return c.tree, nil
}

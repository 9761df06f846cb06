package api

import "maps"

// Args are the arguments of one invocation.
type Args struct {
	Positional []any
	Named      map[string]any
	// Force bypasses the cache lookup and refreshes the entry.
	Force bool
}

type forceMarker struct{}

// Force, passed among positional arguments to Call, forces a cache refresh.
var Force = forceMarker{}

// ForceKey is the reserved named argument equivalent to Force.
const ForceKey = "force"

// Positional builds Args from positional values, extracting the Force marker.
func Positional(values ...any) Args {
	var a Args
	for _, v := range values {
		if _, ok := v.(forceMarker); ok {
			a.Force = true
			continue
		}
		a.Positional = append(a.Positional, v)
	}
	return a
}

// With returns a copy of a with a named argument set. The reserved "force"
// key sets Force instead.
func (a Args) With(key string, value any) Args {
	if key == ForceKey {
		if b, ok := value.(bool); ok {
			a.Force = b
			return a
		}
	}
	named := make(map[string]any, len(a.Named)+1)
	maps.Copy(named, a.Named)
	named[key] = value
	a.Named = named
	return a
}

// Forced returns a copy of a with Force set.
func (a Args) Forced() Args {
	a.Force = true
	return a
}

// Lookup returns a named argument.
func (a Args) Lookup(key string) (any, bool) {
	v, ok := a.Named[key]
	return v, ok
}

// String returns the i-th positional argument if it is a string.
func (a Args) String(i int) (string, bool) {
	if i < 0 || i >= len(a.Positional) {
		return "", false
	}
	s, ok := a.Positional[i].(string)
	return s, ok
}

// Strings returns every positional argument as a string. It reports false if
// any argument is not a string.
func (a Args) Strings() ([]string, bool) {
	out := make([]string, len(a.Positional))
	for i, v := range a.Positional {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func (a Args) normalize() Args {
	if v, ok := a.Named[ForceKey]; ok {
		if b, isBool := v.(bool); isBool {
			named := maps.Clone(a.Named)
			delete(named, ForceKey)
			a.Named = named
			a.Force = a.Force || b
		}
	}
	rest := a.Positional[:0:0]
	for _, v := range a.Positional {
		if _, ok := v.(forceMarker); ok {
			a.Force = true
			continue
		}
		rest = append(rest, v)
	}
	a.Positional = rest
	return a
}

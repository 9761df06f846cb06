package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer computes fingerprints: deterministic cache keys for one call's
// arguments.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: arguments that cannot be encoded return an error wrapping ErrUnencodable.
type Keyer interface {
	// Key fingerprints positional and named arguments of the call callID.
	Key(callID string, args []any, named map[string]any) (string, error)
}

// DefaultKeyer generates SHA-256 based fingerprints.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic fingerprint: the first 16 hex characters of
// SHA-256 over the canonical JSON of {"call", "args", "named"}.
func (k *DefaultKeyer) Key(callID string, args []any, named map[string]any) (string, error) {
	if args == nil {
		args = []any{}
	}
	if named == nil {
		named = map[string]any{}
	}
	canonical, err := canonicalize(map[string]any{
		"call":  callID,
		"args":  args,
		"named": named,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnencodable, err)
	}

	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:8]), nil
}

// canonicalize produces a deterministic JSON representation of v.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		// encoding/json sorts map keys of every other map type
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)

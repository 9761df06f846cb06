package cache

import (
	"fmt"
	"strings"
)

// Demux is the declared contract for splitting one batched response into
// per-item results.
type Demux int

const (
	// DemuxMapping expects a mapping keyed by item.
	DemuxMapping Demux = iota
	// DemuxPositional expects a sequence aligned with the requested items.
	DemuxPositional
	// DemuxLines expects newline separated text aligned with the requested items.
	DemuxLines
)

// String returns the name of the demux mode.
func (d Demux) String() string {
	switch d {
	case DemuxMapping:
		return "mapping"
	case DemuxPositional:
		return "positional"
	case DemuxLines:
		return "lines"
	default:
		return "unknown"
	}
}

// Valid reports whether d is a known mode.
func (d Demux) Valid() bool {
	return d >= DemuxMapping && d <= DemuxLines
}

// Split maps response onto the requested item names. Items missing from the
// response, or mapped to nil or an empty line, are left out of the result.
func (d Demux) Split(requested []string, response any) (map[string]any, error) {
	out := make(map[string]any, len(requested))
	if response == nil {
		return out, nil
	}

	switch d {
	case DemuxMapping:
		lookup, err := asMapping(response)
		if err != nil {
			return nil, err
		}
		for _, name := range requested {
			if v, ok := lookup(name); ok && v != nil {
				out[name] = v
			}
		}

	case DemuxPositional:
		seq, err := asSequence(response)
		if err != nil {
			return nil, err
		}
		for i, name := range requested {
			if i >= len(seq) {
				break
			}
			if seq[i] != nil {
				out[name] = seq[i]
			}
		}

	case DemuxLines:
		var text string
		switch v := response.(type) {
		case string:
			text = v
		case []byte:
			text = string(v)
		default:
			return nil, fmt.Errorf("%w: lines expects text, got %T", ErrDemux, response)
		}
		lines := strings.Split(strings.Trim(text, "\r\n"), "\n")
		for i, name := range requested {
			if i >= len(lines) {
				break
			}
			if line := strings.TrimRight(lines[i], "\r"); line != "" {
				out[name] = line
			}
		}

	default:
		return nil, ErrInvalidDemux
	}
	return out, nil
}

func asMapping(response any) (func(string) (any, bool), error) {
	switch m := response.(type) {
	case map[string]any:
		return func(k string) (any, bool) { v, ok := m[k]; return v, ok }, nil
	case map[string]string:
		return func(k string) (any, bool) { v, ok := m[k]; return v, ok }, nil
	default:
		return nil, fmt.Errorf("%w: mapping expects an object, got %T", ErrDemux, response)
	}
}

func asSequence(response any) ([]any, error) {
	switch s := response.(type) {
	case []any:
		return s, nil
	case []string:
		out := make([]any, len(s))
		for i, v := range s {
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: positional expects a sequence, got %T", ErrDemux, response)
	}
}

// ItemKey returns the name under which a batch item is reported and matched
// against mapping responses.
//
// Names are textual, so 1 and "1" share the name "1". Batch drops repeats of
// the same item but rejects distinct items sharing a name with ErrItemClash.
func ItemKey(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(item)
	}
}

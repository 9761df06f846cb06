package cache

import (
	"errors"
	"reflect"
	"testing"
)

type stringerItem struct{ id int }

func (s stringerItem) String() string { return "item-" + string(rune('0'+s.id)) }

func TestDemux_Split(t *testing.T) {
	names := []string{"a", "b", "c"}
	tests := []struct {
		name     string
		demux    Demux
		response any
		want     map[string]any
		wantErr  error
	}{
		{
			name:     "mapping keeps requested items",
			demux:    DemuxMapping,
			response: map[string]any{"a": 1, "c": 3, "z": 26},
			want:     map[string]any{"a": 1, "c": 3},
		},
		{
			name:     "mapping drops nil values",
			demux:    DemuxMapping,
			response: map[string]any{"a": nil, "b": "x"},
			want:     map[string]any{"b": "x"},
		},
		{
			name:     "string mapping",
			demux:    DemuxMapping,
			response: map[string]string{"b": "host.example"},
			want:     map[string]any{"b": "host.example"},
		},
		{
			name:     "positional sequence",
			demux:    DemuxPositional,
			response: []any{"x", nil, "z"},
			want:     map[string]any{"a": "x", "c": "z"},
		},
		{
			name:     "short positional sequence",
			demux:    DemuxPositional,
			response: []string{"x"},
			want:     map[string]any{"a": "x"},
		},
		{
			name:     "lines",
			demux:    DemuxLines,
			response: "one\r\n\nthree\n",
			want:     map[string]any{"a": "one", "c": "three"},
		},
		{
			name:     "nil response resolves nothing",
			demux:    DemuxPositional,
			response: nil,
			want:     map[string]any{},
		},
		{
			name:     "mapping shape mismatch",
			demux:    DemuxMapping,
			response: []any{1},
			wantErr:  ErrDemux,
		},
		{
			name:     "positional shape mismatch",
			demux:    DemuxPositional,
			response: map[string]any{},
			wantErr:  ErrDemux,
		},
		{
			name:     "lines shape mismatch",
			demux:    DemuxLines,
			response: 42,
			wantErr:  ErrDemux,
		},
		{
			name:     "unknown mode",
			demux:    Demux(99),
			response: "x",
			wantErr:  ErrInvalidDemux,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.demux.Split(names, tt.response)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Split() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDemux_String(t *testing.T) {
	for d, want := range map[Demux]string{
		DemuxMapping:    "mapping",
		DemuxPositional: "positional",
		DemuxLines:      "lines",
		Demux(-1):       "unknown",
	} {
		if got := d.String(); got != want {
			t.Errorf("Demux(%d).String() = %q, want %q", int(d), got, want)
		}
	}
}

func TestItemKey(t *testing.T) {
	tests := []struct {
		item any
		want string
	}{
		{"example.com", "example.com"},
		{42, "42"},
		{stringerItem{id: 3}, "item-3"},
	}
	for _, tt := range tests {
		if got := ItemKey(tt.item); got != tt.want {
			t.Errorf("ItemKey(%v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}

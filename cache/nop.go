package cache

import (
	"context"
	"time"
)

// Nop is a Cache that stores nothing. Every lookup misses.
//
// Clients with caching disabled run batch calls through a Middleware backed
// by Nop, so responses are still demultiplexed per item.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string, string) (any, bool) { return nil, false }

// Set discards the value.
func (Nop) Set(context.Context, string, string, any, time.Duration) error { return nil }

// Delete is a no-op.
func (Nop) Delete(context.Context, string, string) error { return nil }

// Clear is a no-op.
func (Nop) Clear(context.Context, string) error { return nil }

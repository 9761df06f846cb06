package resilience

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// WindowConfig configures a single admission against a sliding window.
type WindowConfig struct {
	// Period is the length of the rolling interval.
	Period time.Duration

	// MaxPeriod, when greater than Period, makes each admission use a period
	// sampled uniformly from [Period, MaxPeriod].
	MaxPeriod time.Duration

	// Requests is the maximum number of admissions within one period.
	// Default: 1
	Requests int
}

// Validate checks the configuration.
func (c WindowConfig) Validate() error {
	if c.Period <= 0 {
		return ErrInvalidPeriod
	}
	if c.MaxPeriod > 0 && c.MaxPeriod < c.Period {
		return ErrInvalidPeriod
	}
	if c.Requests < 0 {
		return ErrInvalidRequests
	}
	return nil
}

func (c WindowConfig) requests() int {
	if c.Requests <= 0 {
		return 1
	}
	return c.Requests
}

// period returns the window length for one admission.
func (c WindowConfig) period() time.Duration {
	if c.MaxPeriod <= c.Period {
		return c.Period
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return c.Period + time.Duration(rand.Int64N(int64(c.MaxPeriod-c.Period)+1))
}

// Window is a sliding-window admission log.
//
// A Window is meant to be shared: every client of one API class admits
// through the same Window, which models a single account-level quota.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: Acquire honors cancellation while waiting.
type Window struct {
	mu     sync.Mutex
	stamps []time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithWindowClock replaces the time source and the sleep function.
// Intended for tests.
func WithWindowClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) WindowOption {
	return func(w *Window) {
		if now != nil {
			w.now = now
		}
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// NewWindow creates an empty window.
func NewWindow(opts ...WindowOption) *Window {
	w := &Window{
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Ticket records one admission.
type Ticket struct {
	w        *Window
	at       time.Time
	waited   time.Duration
	released bool
}

// At returns the admission time.
func (t *Ticket) At() time.Time { return t.at }

// Waited returns how long Acquire blocked before admitting.
func (t *Ticket) Waited() time.Duration { return t.waited }

// Release withdraws the admission so it no longer counts against the window.
// Calling Release more than once is a no-op.
func (t *Ticket) Release() {
	if t == nil || t.w == nil {
		return
	}
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	for i, s := range t.w.stamps {
		if s.Equal(t.at) {
			t.w.stamps = append(t.w.stamps[:i], t.w.stamps[i+1:]...)
			return
		}
	}
}

// Acquire blocks until the window admits one more call, then records it.
//
// Admissions are served in the order the window frees up; the timestamp is
// taken at admission, not at arrival.
func (w *Window) Acquire(ctx context.Context, cfg WindowConfig) (*Ticket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	period := cfg.period()
	limit := cfg.requests()
	start := w.now()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w.mu.Lock()
		now := w.now()
		w.evictLocked(now, period)
		if len(w.stamps) < limit {
			// Stamps stay ordered even when the clock is coarse.
			if n := len(w.stamps); n > 0 && !now.After(w.stamps[n-1]) {
				now = w.stamps[n-1].Add(time.Nanosecond)
			}
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return &Ticket{w: w, at: now, waited: now.Sub(start)}, nil
		}
		wait := period - now.Sub(w.stamps[len(w.stamps)-limit])
		w.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if err := w.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Len returns the number of admissions still inside a window of the given
// period.
func (w *Window) Len(period time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evictLocked(w.now(), period)
	return len(w.stamps)
}

// Reset forgets every admission.
func (w *Window) Reset() {
	w.mu.Lock()
	w.stamps = nil
	w.mu.Unlock()
}

func (w *Window) evictLocked(now time.Time, period time.Duration) {
	drop := 0
	for drop < len(w.stamps) && now.Sub(w.stamps[drop]) >= period {
		drop++
	}
	if drop > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[drop:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

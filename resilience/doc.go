// Package resilience provides the throttling and retry primitives used by API
// calls.
//
// # Sliding window
//
// A Window keeps the admission times of recent calls. Acquire blocks until
// fewer than Requests admissions remain inside the last Period, then records
// a new one. One Window is shared by every client of an API class, so the
// quota is enforced per account rather than per client:
//
//	w := resilience.NewWindow()
//	ticket, err := w.Acquire(ctx, resilience.WindowConfig{
//	    Period:   time.Second,
//	    Requests: 2,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := validate(args); err != nil {
//	    ticket.Release() // rejected calls do not consume quota
//	    return err
//	}
//
// Setting MaxPeriod above Period samples the window length for every
// admission, which spreads clients that would otherwise wake up together.
//
// # Retry
//
// Retry re-runs an operation while RetryIf accepts its error. Batch cache
// lookups use it to re-request only the items a previous attempt left
// unresolved.
package resilience

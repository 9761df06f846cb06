package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature of a call invocation wrapped by Middleware.
type ExecuteFunc func(ctx context.Context, call CallMeta, args any) (any, error)

// Middleware wraps call invocations with observability (tracing, metrics,
// logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Arguments and results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing and logs to logger.
// A nil logger discards everything.
func NopMiddleware(logger Logger) *Middleware {
	return NewMiddleware(nil, nil, logger)
}

// Logger returns the logger used for call log lines.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// WithLogger returns a copy of m that logs to logger.
func (m *Middleware) WithLogger(logger Logger) *Middleware {
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: m.tracer, metrics: m.metrics, logger: logger}
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, call CallMeta, args any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, call)
		start := time.Now()

		result, err := fn(ctx, call, args)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, call, duration, err)

		callLogger := m.logger.WithCall(call)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			callLogger.Error(ctx, "call failed", fields...)
		} else {
			callLogger.Debug(ctx, "call completed", fields...)
		}

		return result, err
	}
}

// RecordCache records cache lookups of one call.
func (m *Middleware) RecordCache(ctx context.Context, call CallMeta, hit bool, n int) {
	m.metrics.RecordCache(ctx, call, hit, n)
}

// RecordThrottle records a rate window wait. Waits are logged at debug level.
func (m *Middleware) RecordThrottle(ctx context.Context, call CallMeta, wait time.Duration) {
	m.metrics.RecordThrottle(ctx, call, wait)
	if wait > 0 {
		m.logger.WithCall(call).Debug(ctx, "throttled",
			Field{Key: "wait_ms", Value: float64(wait.Milliseconds())})
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}

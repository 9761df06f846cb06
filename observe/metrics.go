package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one finished call with its duration and error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordCache records n cache lookups of one call that hit or missed.
	RecordCache(ctx context.Context, meta CallMeta, hit bool, n int)

	// RecordThrottle records how long a call waited for its rate window.
	RecordThrottle(ctx context.Context, meta CallMeta, wait time.Duration)
}

type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	throttleHist metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{meter: meter}
	var err error

	if m.totalCount, err = meter.Int64Counter(
		"apicall.calls.total",
		metric.WithDescription("Total number of API calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.errorCount, err = meter.Int64Counter(
		"apicall.calls.errors",
		metric.WithDescription("Total number of failed API calls"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.durationHist, err = meter.Float64Histogram(
		"apicall.calls.duration_ms",
		metric.WithDescription("API call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.cacheHits, err = meter.Int64Counter(
		"apicall.cache.hits",
		metric.WithDescription("Cache lookups served from a valid entry"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter(
		"apicall.cache.misses",
		metric.WithDescription("Cache lookups that required a request"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}
	if m.throttleHist, err = meter.Float64Histogram(
		"apicall.throttle.wait_ms",
		metric.WithDescription("Time spent waiting for the rate window in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCache(ctx context.Context, meta CallMeta, hit bool, n int) {
	if n <= 0 {
		return
	}
	opt := metric.WithAttributes(meta.attributes()...)
	if hit {
		m.cacheHits.Add(ctx, int64(n), opt)
	} else {
		m.cacheMisses.Add(ctx, int64(n), opt)
	}
}

func (m *metricsImpl) RecordThrottle(ctx context.Context, meta CallMeta, wait time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("call.class", meta.Class)}
	m.throttleHist.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}

type noopMetrics struct{}

func (m *noopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error) {}
func (m *noopMetrics) RecordCache(context.Context, CallMeta, bool, int)           {}
func (m *noopMetrics) RecordThrottle(context.Context, CallMeta, time.Duration)    {}

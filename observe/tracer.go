package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta describes one API call for telemetry purposes.
type CallMeta struct {
	Class    string // API class name (e.g. "shodan")
	Path     string // Dotted call path (required)
	Kind     string // "single" or "batch" (optional)
	Instance string // Client instance id (optional)
	Private  bool   // Call requires a private plan
}

// SpanName returns the deterministic span name for this call.
// Format: apicall.<class>.<path> or apicall.<path>
func (m CallMeta) SpanName() string {
	return "apicall." + m.CallID()
}

// CallID returns the class-qualified call path.
func (m CallMeta) CallID() string {
	if m.Class != "" {
		return m.Class + "." + m.Path
	}
	return m.Path
}

// Validate checks that the metadata names a call.
func (m CallMeta) Validate() error {
	if m.Path == "" {
		return ErrMissingCallPath
	}
	return nil
}

func (m CallMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", m.CallID()),
		attribute.String("call.path", m.Path),
	}
	if m.Class != "" {
		attrs = append(attrs, attribute.String("call.class", m.Class))
	}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("call.kind", m.Kind))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes. The instance
// id is attached to the span only; metrics stay low-cardinality.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("call.error", false))
	if meta.Instance != "" {
		attrs = append(attrs, attribute.String("call.instance", meta.Instance))
	}
	if meta.Private {
		attrs = append(attrs, attribute.Bool("call.private", true))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}

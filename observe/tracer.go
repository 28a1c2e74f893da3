package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpMeta describes one draft operation for telemetry purposes.
type OpMeta struct {
	Kind      string // Entity kind (request, context, collection, endpoint)
	Operation string // Operation name (required): define, fetch, release, ...
	EntityID  string // Focused entity id (may be empty for unsaved drafts)
	Owner     string // Owner key of the current session (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: draft.<kind>.<operation> or draft.<operation>
func (m OpMeta) SpanName() string {
	if m.Kind != "" {
		return "draft." + m.Kind + "." + m.Operation
	}
	return "draft." + m.Operation
}

// OpID returns the qualified operation identifier.
func (m OpMeta) OpID() string {
	if m.Kind != "" {
		return m.Kind + "." + m.Operation
	}
	return m.Operation
}

// Tracer wraps OpenTelemetry tracing with draft-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must propagate the parent span from ctx.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a draft operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("draft.op", meta.OpID()),
		attribute.String("draft.operation", meta.Operation),
		attribute.Bool("draft.error", false),
	}
	if meta.Kind != "" {
		attrs = append(attrs, attribute.String("draft.kind", meta.Kind))
	}
	if meta.EntityID != "" {
		attrs = append(attrs, attribute.String("draft.entity_id", meta.EntityID))
	}
	if meta.Owner != "" {
		attrs = append(attrs, attribute.String("draft.owner", meta.Owner))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("draft.error", true))
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

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}

package reactive

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for the engine.
const tracerName = "loom"

// startTaskSpan opens a span around one task run. The container's tracer
// defaults to the global provider, which is a no-op unless the host
// installed one.
func (c *Container) startTaskSpan(ctx context.Context, t *Task) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("loom.task.kind", t.Kind().String()),
		attribute.Int("loom.task.index", t.Index()),
	}
	if t.el != nil {
		attrs = append(attrs, attribute.String("loom.task.host", t.el.Name()))
	}

	return c.tracer.Start(ctx, "loom.task.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// endTaskSpan records the run outcome and closes the span.
func (c *Container) endTaskSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

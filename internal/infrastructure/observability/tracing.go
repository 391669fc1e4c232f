package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chatkit-dev/chat-api"

// GetTracer returns the tracer for the chat service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartDispatchSpan starts a span covering one protocol request dispatch.
func StartDispatchSpan(ctx context.Context, requestType string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "chat.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("chat.request_type", requestType)),
	)
}

// StartStoreSpan starts a span covering one store operation.
func StartStoreSpan(ctx context.Context, op, threadID string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("store.op", op),
			attribute.String("thread.id", threadID),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

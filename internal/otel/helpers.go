package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imtaco/bedrud-client/internal/errors"
)

func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan opens a client span; everything this module traces is an
// outbound call to a Bedrud server or the media engine.
func StartSpan(ctx context.Context, tracer trace.Tracer, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks the span failed and tags it with the error code.
// nil is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	if code := errors.CodeOf(err); code != "" {
		span.SetAttributes(attribute.String("error.code", string(code)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

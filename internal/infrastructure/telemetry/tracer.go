package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "conflict-sentinel"

// StartSpan starts a span on the global tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartHTTPSpan starts a server-side span for an incoming request.
func StartHTTPSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s %s", method, path),
		attribute.String("http.method", method),
		attribute.String("http.target", path),
	)
}

// StartDatabaseSpan starts a client span around one repository operation.
func StartDatabaseSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("db.%s %s", operation, table),
		attribute.String("db.operation", operation),
		attribute.String("db.table", table),
		attribute.String("db.system", "postgresql"),
	)
}

// StartPipelineSpan starts a span for one country's analysis run.
func StartPipelineSpan(ctx context.Context, country string) (context.Context, trace.Span) {
	return StartSpan(ctx, "pipeline.run",
		attribute.String("analysis.country", country),
	)
}

// WithSpanError records the error and marks the span failed, nil-safe.
func WithSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

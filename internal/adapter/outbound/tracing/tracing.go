// Package tracing wires an OpenTelemetry tracer for the forwarding
// pipeline: one span per forwarded request, tagging route id, status, and
// whether the response was an SSE stream.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this gateway in exported spans.
const ServiceName = "aigatewayd"

// NewTracerProvider builds a TracerProvider that exports spans to stdout,
// suitable for local development; a production deployment swaps the
// exporter without touching caller code. Returned shutdown must be called
// on process exit to flush pending spans.
func NewTracerProvider() (*sdktrace.TracerProvider, func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("build stdout trace exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("merge resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, tp.Shutdown, nil
}

// Tracer returns the gateway's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// StartForwardSpan starts a span for one forwarded request.
func StartForwardSpan(ctx context.Context, routeID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "forward_request", trace.WithAttributes(
		attribute.String("route_id", routeID),
	))
}

// EndForwardSpan annotates span with the outcome and ends it. status is the
// HTTP status code written to the client; sse reports whether the response
// was identified as a Server-Sent Events stream.
func EndForwardSpan(span trace.Span, status int, sse bool) {
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Bool("sse", sse),
	)
	span.End()
}

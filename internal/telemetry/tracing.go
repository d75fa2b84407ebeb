package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the subset of trace.Tracer this runtime spans on: one
// coordination tick per web. Kept as a named type so callers don't need
// to import the otel trace package directly.
type Tracer = trace.Tracer

// NewTracerProvider builds a TracerProvider that exports spans via
// stdouttrace, grounded on telemetry/otel.go's OTelProvider setup but
// simplified from OTLP/HTTP export to the stdout exporter this pack
// depends on for local/offline operation. Callers must call Shutdown.
func NewTracerProvider(serviceName string) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartTick starts a span covering one coordination tick of a web, tagged
// with the web id for correlation with the Prometheus web_id label.
func StartTick(ctx context.Context, tracer Tracer, webID string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, "coordination.tick", trace.WithAttributes(attribute.String("web_id", webID)))
}

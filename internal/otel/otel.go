// Package otel configures OpenTelemetry tracing for chain calls.
package otel

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/logohunt-service/internal/config"
)

const serviceName = "logohunt-service"

// InitTracer installs an OTLP/HTTP tracer provider when an endpoint is configured.
// The returned function flushes and stops the provider.
func InitTracer(cfg *config.Config) func() {
	if cfg.OtelEndpoint == "" {
		return func() {}
	}

	ctx := context.Background()
	client := otlptracehttp.NewClient(
		otlptracehttp.WithEndpoint(cfg.OtelEndpoint),
		otlptracehttp.WithInsecure(),
	)

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		logrus.Warnf("Tracing disabled: %v", err)
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		)),
	)
	otel.SetTracerProvider(tp)
	logrus.Infof("Tracing enabled, exporting to %s", cfg.OtelEndpoint)

	return func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
}

// Tracer returns the service tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(serviceName)
}

// StartChainSpan opens a span for a call against one chain's contract
func StartChainSpan(ctx context.Context, name, chain, method string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(
		attribute.String("chain.name", chain),
		attribute.String("contract.method", method),
	))
}

// StartRequestSpan opens a span for one HTTP request
func StartRequestSpan(ctx context.Context, endpoint, method string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "http."+endpoint, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(
		attribute.String("http.method", method),
	))
}

// EndSpan records err on the span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RecordError attaches an error to the span in ctx and marks it failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

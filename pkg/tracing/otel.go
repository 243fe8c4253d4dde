package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/snow-ghost/codeassist"

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Config holds tracing configuration
type Config struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	Environment    string `mapstructure:"environment"`
}

// NewTracer installs a Jaeger-backed provider as the global one.
// Without an endpoint it returns a tracer on the current global provider.
func NewTracer(config Config) (*Tracer, error) {
	if config.JaegerEndpoint == "" {
		return Global(), nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer:   tp.Tracer(instrumentationName),
		shutdown: tp.Shutdown,
	}, nil
}

// Global returns a tracer on whatever provider is globally installed (no-op by default).
func Global() *Tracer {
	return FromProvider(otel.GetTracerProvider())
}

// FromProvider builds a tracer on an explicit provider, used by tests.
func FromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(instrumentationName)}
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartRouteSpan starts the span covering one routing decision
func (t *Tracer) StartRouteSpan(ctx context.Context, sessionID string, promptLen int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "router.route", trace.WithAttributes(
		attribute.String("chat.session_id", sessionID),
		attribute.Int("prompt.length", promptLen),
	))
}

// StartDispatchSpan starts a span for invoking the top-ranked provider
func (t *Tracer) StartDispatchSpan(ctx context.Context, provider string, score int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "router.dispatch", trace.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.Int("provider.score", score),
	))
}

// StartFallbackSpan starts a span for direct text generation
func (t *Tracer) StartFallbackSpan(ctx context.Context, reason string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "router.fallback", trace.WithAttributes(
		attribute.String("fallback.reason", reason),
	))
}

// StartGenerationSpan starts a span for a call to a text-generation backend
func (t *Tracer) StartGenerationSpan(ctx context.Context, backend, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "llm.complete", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("llm.backend", backend),
		attribute.String("llm.model", model),
	))
}

// RecordSpanError records an error in a span
func RecordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSpanSuccess records success in a span
func RecordSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordSpanTokens records token usage in a span
func RecordSpanTokens(span trace.Span, inputTokens, outputTokens int) {
	span.SetAttributes(
		attribute.Int("tokens.input", inputTokens),
		attribute.Int("tokens.output", outputTokens),
		attribute.Int("tokens.total", inputTokens+outputTokens),
	)
}

// Shutdown flushes and stops the exporter, if one was installed
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// GetTraceID extracts trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

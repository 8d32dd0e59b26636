// Package obstracing wires OpenTelemetry tracing around evaluator
// invocations: one span per top-level Evaluate call and one child span per
// nested `!` invocation, exported to stdout in development or via OTLP.
package obstracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls how the tracer provider is constructed.
type Config struct {
	ServiceVersion string
	Environment    string
	ExporterType   string // "stdout" or "otlp"
	OTLPEndpoint   string
	SamplingRate   float64
	Enabled        bool
}

// DefaultConfig returns sensible defaults for local `qrt run` usage.
func DefaultConfig() Config {
	return Config{
		ServiceVersion: "0.1.0",
		Environment:    "development",
		ExporterType:   "stdout",
		SamplingRate:   1.0,
		Enabled:        false,
	}
}

// Provider wraps the SDK tracer provider for the lifetime of one process.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Init constructs and installs the global tracer provider.
func Init(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tp: sdktrace.NewTracerProvider()}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.ExporterType {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		endpoint := cfg.OTLPEndpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		exporter, err = otlptrace.New(context.Background(), client)
	default:
		return nil, fmt.Errorf("obstracing: unsupported exporter type %q", cfg.ExporterType)
	}
	if err != nil {
		return nil, fmt.Errorf("obstracing: exporter init: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName("qrt"),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("obstracing: resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{tp: tp}, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func tracer() trace.Tracer { return otel.Tracer("qrt/evaluator") }

// StartEvaluation opens a span around one top-level Evaluate call.
func StartEvaluation(ctx context.Context, runID string, programLen int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "qrt.evaluate", trace.WithAttributes(
		attribute.String("qrt.run_id", runID),
		attribute.Int("qrt.program_bytes", programLen),
	))
}

// StartInvocation opens a child span around a nested `!` invocation.
func StartInvocation(ctx context.Context, offset int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "qrt.invoke", trace.WithAttributes(
		attribute.Int("qrt.invoke_offset", offset),
	))
}

// RecordFailure marks span as failed with the evaluator's diagnostic message.
func RecordFailure(span trace.Span, message string, offset, line int) {
	span.SetAttributes(
		attribute.Int("qrt.error_offset", offset),
		attribute.Int("qrt.error_line", line),
	)
	span.SetStatus(codes.Error, message)
}

// SpanStack threads nested qrt.invoke spans onto a LIFO stack, keyed off
// evaluator.Hooks' OnInvokeStart/OnInvokeEnd pair, so a `!` invocation
// nested inside another correctly parents under its caller's span rather
// than the top-level qrt.evaluate span. The evaluator reports invocation
// boundaries purely by order — it has no span type of its own to thread
// through — so the stack, not the reported offset, is what tracks nesting.
type SpanStack struct {
	ctxs  []context.Context
	spans []trace.Span
}

// NewSpanStack starts a stack rooted at ctx, normally the context returned
// by StartEvaluation.
func NewSpanStack(ctx context.Context) *SpanStack {
	return &SpanStack{ctxs: []context.Context{ctx}}
}

// Push opens a qrt.invoke span as a child of whatever is currently on top
// of the stack.
func (s *SpanStack) Push(offset int) {
	parent := s.ctxs[len(s.ctxs)-1]
	childCtx, span := StartInvocation(parent, offset)
	s.ctxs = append(s.ctxs, childCtx)
	s.spans = append(s.spans, span)
}

// Pop ends the innermost open span. failed marks it as an error span.
func (s *SpanStack) Pop(failed bool) {
	if len(s.spans) == 0 {
		return
	}
	span := s.spans[len(s.spans)-1]
	if failed {
		span.SetStatus(codes.Error, "")
	}
	span.End()
	s.spans = s.spans[:len(s.spans)-1]
	s.ctxs = s.ctxs[:len(s.ctxs)-1]
}

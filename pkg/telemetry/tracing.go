// Package telemetry configures OpenTelemetry tracing for caseforge's
// pipeline run.
//
// Spans follow the OTel GenAI semantic conventions where applicable:
//   - gen_ai.system — the LLM provider
//   - gen_ai.request.model — the model name
//   - gen_ai.usage.input_tokens / gen_ai.usage.output_tokens — token usage
//
// Custom span attributes use the `caseforge.` prefix.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/caseforge/caseforge"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider installs an OTLP gRPC trace exporter as the global
// trace provider. If endpoint is empty, tracing is disabled (the global
// no-op provider is left in place) so a deployment without a collector
// pays no instrumentation cost. Returns a shutdown function to call on
// process exit.
func InitTraceProvider(ctx context.Context, endpoint, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("caseforge"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartStageSpan creates the span covering one orchestrator stage
// dispatch: gating, agent execution, and artifact merge.
func StartStageSpan(ctx context.Context, caseID, stage, autonomy string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "orchestrator.stage",
		trace.WithAttributes(
			attribute.String("caseforge.case_id", caseID),
			attribute.String("caseforge.stage", stage),
			attribute.String("caseforge.autonomy_level", autonomy),
		),
	)
}

// EndStageSpan enriches the stage span with its terminal outcome.
func EndStageSpan(span trace.Span, status string) {
	span.SetAttributes(attribute.String("caseforge.stage_status", status))
	span.End()
}

// StartLLMCallSpan creates a child span for an LLM call, following GenAI
// semantic conventions.
func StartLLMCallSpan(ctx context.Context, model, provider string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "gen_ai.chat",
		trace.WithAttributes(
			attribute.String("gen_ai.system", provider),
			attribute.String("gen_ai.request.model", model),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndLLMCallSpan enriches the LLM span with usage data.
func EndLLMCallSpan(span trace.Span, inputTokens, outputTokens int64) {
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", inputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", outputTokens),
	)
	span.End()
}

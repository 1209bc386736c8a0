// Package traces provides OpenTelemetry tracing for the training pipeline and the scoring service.
package traces

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mbd888/fraudrisk"

// Init installs a tracer provider exporting to otlpEndpoint over gRPC.
// With an empty endpoint tracing stays a no-op.
// The returned function flushes and stops the provider.
func Init(ctx context.Context, serviceName, otlpEndpoint string, logger *slog.Logger) (func(context.Context) error, error) {
	if otlpEndpoint == "" {
		logger.Info("tracing disabled (no OTEL_EXPORTER_OTLP_ENDPOINT set)")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("0.1.0"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled", "endpoint", otlpEndpoint, "service", serviceName)
	return tp.Shutdown, nil
}

// StartSpan starts a span named name with optional attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// Fail marks span as failed with err.
func Fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

func Samples(n int) attribute.KeyValue {
	return attribute.Int("dataset.samples", n)
}

func Seed(seed uint64) attribute.KeyValue {
	return attribute.Int64("dataset.seed", int64(seed))
}

func ArtifactPath(path string) attribute.KeyValue {
	return attribute.String("model.artifact", path)
}

func Accuracy(acc float64) attribute.KeyValue {
	return attribute.Float64("model.holdout_accuracy", acc)
}

func RiskScore(score float64) attribute.KeyValue {
	return attribute.Float64("fraud.risk_score", score)
}

func AssessmentID(id string) attribute.KeyValue {
	return attribute.String("assessment.id", id)
}

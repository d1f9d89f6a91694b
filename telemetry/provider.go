package telemetry

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables gating the tracing provider.
const (
	// EnvEnabled disables tracing when set to "false".
	EnvEnabled = "SIGNALGRID_OTEL_ENABLED"

	// EnvEndpoint names the OTLP HTTP endpoint. Tracing stays off
	// while it is empty.
	EnvEndpoint = "SIGNALGRID_OTEL_ENDPOINT"
)

// Setup initializes OpenTelemetry tracing for serviceName and installs
// the global tracer provider.
//
// Tracing is opt-in. With EnvEndpoint unset, or with EnvEnabled set to
// "false", no provider is registered and the returned shutdown
// function does nothing.
//
// The shutdown function flushes pending spans; defer it from main.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if strings.EqualFold(os.Getenv(EnvEnabled), "false") {
		return noop, nil
	}

	endpoint := os.Getenv(EnvEndpoint)
	if endpoint == "" {
		return noop, nil
	}

	return SetupWithEndpoint(ctx, serviceName, endpoint)
}

// SetupWithEndpoint initializes tracing against an explicit OTLP HTTP
// endpoint, bypassing the environment gates. Callers holding a parsed
// configuration use this directly.
func SetupWithEndpoint(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

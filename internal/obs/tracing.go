package obs

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracerOptions controls tracer provider setup for the sales API.
type TracerOptions struct {
	ServiceName string
	Environment string
	// EndpointURL overrides the default OTLP HTTP collector endpoint.
	EndpointURL string
	// SampleRatio in (0, 1]; non-positive values trace everything.
	SampleRatio float64
}

// SetupTracing installs a global OTLP-over-HTTP tracer provider and returns
// its shutdown function. Sampling is parent-based so spans arriving from an
// upstream caller keep their sampling decision.
func SetupTracing(ctx context.Context, opts TracerOptions) (func(context.Context) error, error) {
	var exporterOpts []otlptracehttp.Option
	if url := strings.TrimSpace(opts.EndpointURL); url != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpointURL(url))
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}

	name := opts.ServiceName
	if name == "" {
		name = "vendas-api"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(name),
		semconv.DeploymentEnvironmentKey.String(opts.Environment),
	))
	if err != nil {
		return nil, err
	}

	ratio := opts.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}

package otel

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/runnerguard/runnerguard/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Init builds an OTLP tracer provider whose resource carries the rule catalog and
// profile the run evaluates with, installs it globally and returns its handle.
func Init(ctx context.Context, cfg Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := newExporter(ctx, cfg.Protocol, resolveEndpoint(cfg), cfg.Insecure)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Handle{
		Tracer:   newTracer(tp),
		Shutdown: tp.Shutdown,
	}, nil
}

// InitWithProvider for testing
func InitWithProvider(tp trace.TracerProvider) *Handle {
	return &Handle{
		Tracer:   newTracer(tp),
		Shutdown: func(ctx context.Context) error { return nil },
	}
}

func newTracer(tp trace.TracerProvider) trace.Tracer {
	return tp.Tracer(ServiceName,
		trace.WithInstrumentationVersion(version.BuildVersion()),
		trace.WithSchemaURL(semconv.SchemaURL),
	)
}

// resolveEndpoint prefers the flag, then OTEL_EXPORTER_OTLP_ENDPOINT, then the
// collector default for the protocol.
func resolveEndpoint(cfg Config) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	if env := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); env != "" {
		return env
	}
	if cfg.Protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "http://localhost:4318"
}

// newResource describes the process and the policy set. OTEL_RESOURCE_ATTRIBUTES
// is applied last so operators can override any key.
func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version.BuildVersion()),
	}
	if cfg.CatalogVersion != "" {
		attrs = append(attrs, attribute.String(AttrCatalogVersion, cfg.CatalogVersion))
	}
	if cfg.CatalogRules > 0 {
		attrs = append(attrs, attribute.Int(AttrCatalogRules, cfg.CatalogRules))
	}
	if cfg.Profile != "" {
		attrs = append(attrs, attribute.String(AttrProfile, cfg.Profile))
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, err
	}
	return res, nil
}

// newExporter accepts either host:port or a full URL for the endpoint.
func newExporter(ctx context.Context, protocol, endpoint string, insecure bool) (sdktrace.SpanExporter, error) {
	isURL := strings.Contains(endpoint, "://")
	if protocol == ProtocolGRPC {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if isURL {
			opts[0] = otlptracegrpc.WithEndpointURL(endpoint)
		}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if isURL {
		opts[0] = otlptracehttp.WithEndpointURL(endpoint)
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// newSampler samples everything at 1, nothing at 0 and otherwise follows the
// parent's decision with a trace-id ratio for root spans.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

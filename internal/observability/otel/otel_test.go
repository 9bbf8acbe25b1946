package otel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "disabled is always valid",
			cfg:     Config{Enabled: false, Protocol: "invalid", SampleRatio: -1},
			wantErr: false,
		},
		{
			name:    "valid otlphttp",
			cfg:     Config{Enabled: true, ServiceName: ServiceName, Protocol: ProtocolHTTP, SampleRatio: 0.5},
			wantErr: false,
		},
		{
			name:    "valid otlpgrpc",
			cfg:     Config{Enabled: true, ServiceName: ServiceName, Protocol: ProtocolGRPC, SampleRatio: 1.0},
			wantErr: false,
		},
		{
			name:    "empty service name",
			cfg:     Config{Enabled: true, Protocol: ProtocolHTTP, SampleRatio: 1.0},
			wantErr: true,
		},
		{
			name:    "invalid protocol",
			cfg:     Config{Enabled: true, ServiceName: ServiceName, Protocol: "invalid", SampleRatio: 1.0},
			wantErr: true,
		},
		{
			name:    "sample ratio below 0",
			cfg:     Config{Enabled: true, ServiceName: ServiceName, Protocol: ProtocolHTTP, SampleRatio: -0.1},
			wantErr: true,
		},
		{
			name:    "negative catalog rule count",
			cfg:     Config{Enabled: true, ServiceName: ServiceName, Protocol: ProtocolHTTP, SampleRatio: 1.0, CatalogRules: -1},
			wantErr: true,
		},
		{
			name:    "sample ratio above 1",
			cfg:     Config{Enabled: true, ServiceName: ServiceName, Protocol: ProtocolHTTP, SampleRatio: 1.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStart_UsesHandleTracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx := WithHandle(context.Background(), InitWithProvider(tp))
	ctx, span := Start(ctx, "runnerguard.validate",
		attribute.String("runnerguard.profile", "production"),
		attribute.Int("runnerguard.resources", 3),
	)
	End(span, nil)
	_ = tp.ForceFlush(ctx)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "runnerguard.validate" {
		t.Errorf("span name = %q, want %q", s.Name(), "runnerguard.validate")
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("span status = %v, want Ok", s.Status().Code)
	}

	var foundProfile bool
	for _, attr := range s.Attributes() {
		if attr.Key == "runnerguard.profile" {
			foundProfile = true
			if attr.Value.AsString() != "production" {
				t.Errorf("runnerguard.profile = %q, want production", attr.Value.AsString())
			}
		}
	}
	if !foundProfile {
		t.Error("missing attribute: runnerguard.profile")
	}
}

func TestEnd_RecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx := WithHandle(context.Background(), InitWithProvider(tp))
	_, span := Start(ctx, "runnerguard.config")
	End(span, errors.New("config parse error"))
	_ = tp.ForceFlush(ctx)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", s.Status().Code)
	}
	foundError := false
	for _, e := range s.Events() {
		if e.Name == "exception" {
			foundError = true
		}
	}
	if !foundError {
		t.Error("expected error event to be recorded")
	}
}

func TestStart_WithoutHandle(t *testing.T) {
	ctx, span := Start(context.Background(), "runnerguard.noop")
	if ctx == nil || span == nil {
		t.Fatal("Start must return a usable context and span without a handle")
	}
	if span.SpanContext().IsValid() {
		t.Error("expected a non-recording span when tracing is off")
	}
	End(span, errors.New("ignored"))
}

func TestContextRoundtrip(t *testing.T) {
	// Without handle
	ctx := context.Background()
	if h := From(ctx); h != nil {
		t.Error("expected nil handle from empty context")
	}

	// With handle
	handle := &Handle{}
	ctx = WithHandle(ctx, handle)
	if got := From(ctx); got != handle {
		t.Error("expected to retrieve the same handle from context")
	}
}

func TestNewResource_PolicyAttributes(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")
	t.Setenv("OTEL_SERVICE_NAME", "")

	cfg := DefaultConfig()
	cfg.CatalogVersion = "2024.3"
	cfg.CatalogRules = 18
	cfg.Profile = "production"

	res, err := newResource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newResource() error = %v", err)
	}
	set := res.Set()

	wantStrings := map[attribute.Key]string{
		"service.name":     ServiceName,
		AttrCatalogVersion: "2024.3",
		AttrProfile:        "production",
	}
	for key, want := range wantStrings {
		got, ok := set.Value(key)
		if !ok {
			t.Errorf("missing resource attribute %s", key)
			continue
		}
		if got.AsString() != want {
			t.Errorf("%s = %q, want %q", key, got.AsString(), want)
		}
	}
	if got, ok := set.Value(AttrCatalogRules); !ok || got.AsInt64() != 18 {
		t.Errorf("%s = %v, want 18", AttrCatalogRules, got.Emit())
	}
}

func TestNewResource_OmitsUnknownProfile(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "")
	t.Setenv("OTEL_SERVICE_NAME", "")

	res, err := newResource(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("newResource() error = %v", err)
	}
	for _, key := range []attribute.Key{AttrProfile, AttrCatalogVersion, AttrCatalogRules} {
		if _, ok := res.Set().Value(key); ok {
			t.Errorf("unexpected resource attribute %s", key)
		}
	}
}

func TestNewResource_EnvOverrides(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "runnerguard.profile=staging")
	t.Setenv("OTEL_SERVICE_NAME", "")

	cfg := DefaultConfig()
	cfg.Profile = "production"
	res, err := newResource(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newResource() error = %v", err)
	}
	got, _ := res.Set().Value(AttrProfile)
	if got.AsString() != "staging" {
		t.Errorf("%s = %q, want staging", AttrProfile, got.AsString())
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		env  string
		want string
	}{
		{"flag wins", Config{Endpoint: "collector:4318", Protocol: ProtocolHTTP}, "http://env:4318", "collector:4318"},
		{"env fallback", Config{Protocol: ProtocolHTTP}, "http://env:4318", "http://env:4318"},
		{"http default", Config{Protocol: ProtocolHTTP}, "", "http://localhost:4318"},
		{"grpc default", Config{Protocol: ProtocolGRPC}, "", "localhost:4317"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", tt.env)
			if got := resolveEndpoint(tt.cfg); got != tt.want {
				t.Errorf("resolveEndpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio      float64
		wantPrefix string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "ParentBased"},
	}
	for _, tt := range tests {
		if got := newSampler(tt.ratio).Description(); !strings.HasPrefix(got, tt.wantPrefix) {
			t.Errorf("newSampler(%v) = %q, want prefix %q", tt.ratio, got, tt.wantPrefix)
		}
	}
}

func TestInitWithProvider_InstrumentationScope(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx := WithHandle(context.Background(), InitWithProvider(tp))
	_, span := Start(ctx, "runnerguard.rules")
	End(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].InstrumentationScope().Name; got != ServiceName {
		t.Errorf("scope name = %q, want %q", got, ServiceName)
	}
}

// Package otel provides OpenTelemetry tracing integration for runnerguard.
// Disabled by default; enabled via --otel flag.
package otel

import (
	"errors"
)

// ServiceName reported on the resource and used as the tracer name
const ServiceName = "runnerguard"

// Protocol constants for OTLP exporters.
const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// Resource attribute keys describing the policy set a process evaluates with.
const (
	AttrCatalogVersion = "runnerguard.catalog.version"
	AttrCatalogRules   = "runnerguard.catalog.rules"
	AttrProfile        = "runnerguard.profile"
)

// Config holds OTel initialization options.
type Config struct {
	Enabled     bool
	Endpoint    string  // e.g., "http://localhost:4318" or "localhost:4317"
	Protocol    string  // "otlphttp" or "otlpgrpc"
	Insecure    bool    // allow insecure connections (no TLS)
	ServiceName string  // default: "runnerguard"
	SampleRatio float64 // 0..1, default: 1.0

	// CatalogVersion and CatalogRules identify the built-in rule set.
	CatalogVersion string
	CatalogRules   int
	// Profile is the environment profile requested for the run, if known up front.
	Profile string
}

// DefaultConfig returns a Config with safe defaults (OTel disabled).
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Protocol:    ProtocolHTTP,
		ServiceName: ServiceName,
		SampleRatio: 1.0,
	}
}

// Validate checks that the configuration is valid when OTel is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return errors.New("otel: protocol must be 'otlphttp' or 'otlpgrpc'")
	}

	if c.ServiceName == "" {
		return errors.New("otel: service name must not be empty")
	}

	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("otel: sample-ratio must be between 0 and 1")
	}

	if c.CatalogRules < 0 {
		return errors.New("otel: catalog rule count must not be negative")
	}

	return nil
}

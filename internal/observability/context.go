// Package observability carries operation ids for logging and tracing.
package observability

import (
	"context"

	"github.com/google/uuid"
)

type opIDKey struct{}

// WithOpID stores a fresh operation ID in the context.
// Each CLI invocation calls this once at startup.
func WithOpID(ctx context.Context) context.Context {
	return context.WithValue(ctx, opIDKey{}, uuid.NewString())
}

// WithExistingOpID reuses an id supplied by the caller, e.g. from an upstream pipeline
func WithExistingOpID(ctx context.Context, id string) context.Context {
	if _, err := uuid.Parse(id); err != nil {
		return WithOpID(ctx)
	}
	return context.WithValue(ctx, opIDKey{}, id)
}

// OpID retrieves the operation ID from context.
// Returns empty string if no op_id was set.
func OpID(ctx context.Context) string {
	if id, ok := ctx.Value(opIDKey{}).(string); ok {
		return id
	}
	return ""
}

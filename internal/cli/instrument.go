package cli

import (
	"context"
	"strings"
	"time"

	"github.com/runnerguard/runnerguard/internal/observability"
	"github.com/runnerguard/runnerguard/internal/observability/logging"
	otelobs "github.com/runnerguard/runnerguard/internal/observability/otel"
	"github.com/runnerguard/runnerguard/internal/observability/receipt"
	"go.opentelemetry.io/otel/attribute"
)

// instrument wraps a command body with a span, <name>.start / <name>.complete events and
// an audit receipt. fn reports its result status ("success", "fail" or "blocked").
func instrument(ctx context.Context, name string, fn func(ctx context.Context) (string, error)) (err error) {
	log := logging.From(ctx)
	start := time.Now()

	ctx, span := otelobs.Start(ctx, "runnerguard."+name,
		attribute.String("runnerguard.op_id", observability.OpID(ctx)),
		attribute.String("runnerguard.command", name),
	)
	defer func() { otelobs.End(span, err) }()

	log.Event(ctx, name+".start", nil)

	ctx, sess := receipt.Start(ctx, "runnerguard "+strings.ReplaceAll(name, ".", " "), invocationArgs(ctx))
	status := "fail"
	defer func() {
		log.Event(ctx, name+".complete", map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"result":      status,
		})
		if rerr := sess.Finish(err, receipt.WithStatus(status)); rerr != nil {
			log.Warn("receipt", "failed to write receipt", "error", rerr.Error())
		}
	}()

	status, err = fn(ctx)
	if err != nil && status == "" {
		status = "fail"
	}
	return err
}

// Package policy is the runner governance engine consumed by callers.
package policy

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/runnerguard/runnerguard/internal/catalog"
	"github.com/runnerguard/runnerguard/internal/compliance"
	"github.com/runnerguard/runnerguard/internal/config"
	"github.com/runnerguard/runnerguard/internal/eval"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/observability/logging"
	"github.com/runnerguard/runnerguard/internal/observability/metrics"
	otelobs "github.com/runnerguard/runnerguard/internal/observability/otel"
	"github.com/runnerguard/runnerguard/internal/remediation"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Engine evaluates runner resources against the active rule table.
// It is safe for concurrent use; ApplyConfiguration swaps the table atomically.
type Engine struct {
	table   atomic.Pointer[models.EffectiveRuleTable]
	logger  logging.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	workers int
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records evaluations, fixes and reports on r
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = r }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithWorkers bounds EvaluateAll concurrency. n <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// NewEngine starts with the built-in rules under the default profile
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}

	table, err := config.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve built-in rules: %w", err)
	}
	e.table.Store(table)
	return e, nil
}

// Table currently in effect
func (e *Engine) Table() *models.EffectiveRuleTable {
	return e.table.Load()
}

// ApplyConfiguration resolves cfg into a new table. On error the previous table stays
// active and the *config.Error is returned.
func (e *Engine) ApplyConfiguration(cfg *models.PolicyConfiguration) ([]string, error) {
	table, err := config.Resolve(cfg)
	if err != nil {
		e.logger.Warn("config", "configuration rejected, keeping previous rules", "error", err.Error())
		return nil, err
	}
	e.table.Store(table)

	warnings := table.Warnings()
	for _, w := range warnings {
		e.logger.Warn("config", w, "profile", table.Profile())
	}
	e.logger.Info("config", "configuration applied", "profile", table.Profile(), "rules", table.Len())
	return warnings, nil
}

// EvaluateResource runs every enabled rule against obj. kind overrides obj's kind when set.
func (e *Engine) EvaluateResource(obj *unstructured.Unstructured, kind string) models.EvaluationResult {
	start := e.now()
	result := eval.Collect(e.Table(), obj, kind)
	result.EvaluatedAt = start.UTC()

	e.metrics.ObserveEvaluation(result, e.now().Sub(start))
	e.logger.Debug("eval", "resource evaluated",
		"resource", result.Resource.String(),
		"passed", result.Passed,
		"violations", len(result.Violations),
		"warnings", len(result.Warnings))
	return result
}

// EvaluateAll evaluates objs concurrently against one table snapshot. Results keep input order.
func (e *Engine) EvaluateAll(ctx context.Context, objs []*unstructured.Unstructured) ([]models.EvaluationResult, error) {
	ctx, span := otelobs.Start(ctx, "policy.evaluate_all", attribute.Int("resources", len(objs)))
	var err error
	defer func() { otelobs.End(span, err) }()

	table := e.Table()
	results := make([]models.EvaluationResult, len(objs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, obj := range objs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := e.now()
			res := eval.Collect(table, obj, "")
			res.EvaluatedAt = start.UTC()
			e.metrics.ObserveEvaluation(res, e.now().Sub(start))
			results[i] = res
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("evaluation interrupted: %w", err)
		}
		return nil, err
	}
	return results, nil
}

// AutoFix remediates violations on a copy of obj
func (e *Engine) AutoFix(obj *unstructured.Unstructured, violations []models.Violation) models.AutoFixResult {
	fixer := &remediation.Fixer{Now: e.now, Logger: e.logger}
	result := fixer.Fix(obj, violations, e.Table())
	e.metrics.ObserveFix(result)
	e.logger.Info("remediation", "auto-fix complete",
		"resource", models.RefOf(obj).String(),
		"fixed", result.FixedCount,
		"failed", result.FailedCount)
	return result
}

// GenerateComplianceReport scores results, optionally scoped to namespace
func (e *Engine) GenerateComplianceReport(results []models.EvaluationResult, namespace string) models.ComplianceReport {
	reporter := &compliance.Reporter{Now: e.now}
	report := reporter.Score(results, namespace)
	e.metrics.ObserveReport(report)
	return report
}

// ListRules in table order, built-ins first. An empty category lists everything.
// The rules are copies; changing them never reaches the active table.
func (e *Engine) ListRules(category string) []models.PolicyRule {
	var out []models.PolicyRule
	for _, er := range e.Table().Rules() {
		if category != "" && !strings.EqualFold(string(er.Rule.Category), category) {
			continue
		}
		out = append(out, catalog.Clone(er.Rule))
	}
	return out
}

// Package metrics exposes evaluation counters in Prometheus form. A nil *Recorder is valid and
// records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/runnerguard/runnerguard/internal/models"
)

const namespace = "runnerguard"

// Recorder holds the collectors registered for one engine
type Recorder struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	violations  *prometheus.CounterVec
	fixes       *prometheus.CounterVec
	compliance  *prometheus.GaugeVec
	duration    prometheus.Histogram
}

// NewRecorder registers the runnerguard collectors on a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Resources evaluated, by profile and outcome (passed or blocked).",
			},
			[]string{"profile", "outcome"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Rule violations found, including warnings below the blocking threshold.",
			},
			[]string{"rule_id", "category", "severity"},
		),
		fixes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autofix_total",
				Help:      "Auto-fix attempts by rule and result (fixed or failed).",
			},
			[]string{"rule_id", "result"},
		),
		compliance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "compliance_score",
				Help:      "Last overall compliance percentage, by namespace.",
			},
			[]string{"namespace"},
		),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating one resource.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
	r.registry.MustRegister(r.evaluations, r.violations, r.fixes, r.compliance, r.duration)
	return r
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveEvaluation counts one result and its violations
func (r *Recorder) ObserveEvaluation(result models.EvaluationResult, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "passed"
	if !result.Passed {
		outcome = "blocked"
	}
	r.evaluations.WithLabelValues(result.Profile, outcome).Inc()
	for _, v := range result.All() {
		r.violations.WithLabelValues(v.RuleID, string(v.Category), string(v.Severity)).Inc()
	}
	r.duration.Observe(elapsed.Seconds())
}

// ObserveFix counts fixed and failed remediations
func (r *Recorder) ObserveFix(result models.AutoFixResult) {
	if r == nil {
		return
	}
	for _, f := range result.Fixed {
		r.fixes.WithLabelValues(f.RuleID, "fixed").Inc()
	}
	for _, f := range result.FailedViolations {
		r.fixes.WithLabelValues(f.Violation.RuleID, "failed").Inc()
	}
}

// ObserveReport sets the compliance gauge
func (r *Recorder) ObserveReport(report models.ComplianceReport) {
	if r == nil {
		return
	}
	r.compliance.WithLabelValues(report.Namespace).Set(float64(report.OverallCompliance))
}

// WriteTextfile dumps the registry in the node_exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

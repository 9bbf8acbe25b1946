// Package compliance aggregates evaluation results into a scored report.
package compliance

import (
	"fmt"
	"math"
	"time"

	"github.com/runnerguard/runnerguard/internal/models"
)

// Recommendation templates per category
var recommendations = map[models.Category]string{
	models.CategorySecurity:    "Harden runner pod security: run as non-root, drop capabilities and avoid privileged containers.",
	models.CategoryCompliance:  "Meet compliance controls: set resource limits, an owner label and a runner group, and reach GitHub over HTTPS.",
	models.CategoryPerformance: "Right-size runner capacity: set resource requests and keep a warm minimum of runners.",
	models.CategoryCost:        "Cap runner scale-out: set maxRunners within the environment ceiling.",
	models.CategoryOperations:  "Improve operability: pin image versions and use an explicit imagePullPolicy.",
	models.CategoryNetworking:  "Review runner networking: use ClusterFirst DNS and avoid host networking.",
}

const (
	recommendCritical  = "Resolve the %d critical violation(s) before deploying; they block admission."
	recommendCompliant = "All evaluated runner resources are compliant."
)

// Reporter builds reports. The zero value is usable.
type Reporter struct {
	Now func() time.Time
}

// Score with the default reporter
func Score(results []models.EvaluationResult, namespace string) models.ComplianceReport {
	var r Reporter
	return r.Score(results, namespace)
}

// Score sums the summaries of results. An empty rule set scores 100.
func (r *Reporter) Score(results []models.EvaluationResult, namespace string) models.ComplianceReport {
	summary := models.NewSummary()
	for _, res := range results {
		summary.TotalRules += res.Summary.TotalRules
		summary.PassedRules += res.Summary.PassedRules
		summary.FailedRules += res.Summary.FailedRules
		for sev, n := range res.Summary.ViolationsBySeverity {
			summary.ViolationsBySeverity[sev] += n
		}
		for cat, n := range res.Summary.ViolationsByCategory {
			summary.ViolationsByCategory[cat] += n
		}
	}

	return models.ComplianceReport{
		OverallCompliance: Percent(summary.PassedRules, summary.TotalRules),
		Namespace:         namespace,
		Resources:         len(results),
		Results:           models.ReportResults{Summary: summary},
		Recommendations:   Recommend(summary),
		GeneratedAt:       r.now().UTC(),
	}
}

func (r *Reporter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Percent rounds passed/total to an integer percentage; total 0 is 100
func Percent(passed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(passed) / float64(total) * 100))
}

// Recommend returns the templated recommendations for categories with violations
func Recommend(summary models.Summary) []string {
	out := []string{}
	if n := summary.ViolationsBySeverity[models.SeverityCritical]; n > 0 {
		out = append(out, fmt.Sprintf(recommendCritical, n))
	}
	for _, cat := range models.Categories {
		if summary.ViolationsByCategory[cat] > 0 {
			out = append(out, recommendations[cat])
		}
	}
	if len(out) == 0 {
		out = append(out, recommendCompliant)
	}
	return out
}

package cli

import (
	"context"
	"sort"

	"github.com/runnerguard/runnerguard/internal/digest"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/observability/receipt"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type argsKey struct{}

func withArgs(ctx context.Context, args []string) context.Context {
	return context.WithValue(ctx, argsKey{}, args)
}

func invocationArgs(ctx context.Context) []string {
	args, _ := ctx.Value(argsKey{}).([]string)
	return args
}

// evaluationSummary condenses results for the audit receipt. Warnings count toward rules hit.
// objs are the objects results were computed from, in the same order.
func evaluationSummary(table *models.EffectiveRuleTable, outcome string, objs []*unstructured.Unstructured, results []models.EvaluationResult, report models.ComplianceReport) receipt.EvaluationSummary {
	s := receipt.EvaluationSummary{
		Profile:           table.Profile(),
		BlockOn:           string(table.BlockOn()),
		Outcome:           outcome,
		Resources:         len(results),
		OverallCompliance: report.OverallCompliance,
		BySeverity:        map[string]int{},
		ResourceDigests:   map[string]string{},
	}
	// digest errors only drop the fingerprint
	s.RuleTableDigest, _ = digest.Table(table)
	for i, obj := range objs {
		if i >= len(results) {
			break
		}
		if d, err := digest.Resource(obj); err == nil && d != "" {
			s.ResourceDigests[results[i].Resource.String()] = d
		}
	}

	hits := map[string]*receipt.RuleHit{}
	for _, r := range results {
		seen := map[string]bool{}
		for _, v := range r.All() {
			s.BySeverity[string(v.Severity)]++
			if seen[v.RuleID] {
				continue
			}
			seen[v.RuleID] = true
			h, ok := hits[v.RuleID]
			if !ok {
				h = &receipt.RuleHit{RuleID: v.RuleID, Category: string(v.Category), Severity: string(v.Severity)}
				hits[v.RuleID] = h
			}
			h.Resources++
		}
	}
	for _, h := range hits {
		s.RulesHit = append(s.RulesHit, *h)
	}
	sort.Slice(s.RulesHit, func(i, j int) bool { return s.RulesHit[i].RuleID < s.RulesHit[j].RuleID })
	return s
}

// autoFixSummary totals fixes; rule ids are unique and sorted
func autoFixSummary(fixes []*models.AutoFixResult, output string) receipt.AutoFixSummary {
	s := receipt.AutoFixSummary{Output: output}
	rules := map[string]bool{}
	for _, f := range fixes {
		if f == nil {
			continue
		}
		s.Fixed += f.FixedCount
		s.Failed += f.FailedCount
		for _, fr := range f.Fixed {
			rules[fr.RuleID] = true
		}
	}
	for id := range rules {
		s.Rules = append(s.Rules, id)
	}
	sort.Strings(s.Rules)
	return s
}

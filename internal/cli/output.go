package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/runnerguard/runnerguard/internal/models"
)

// ANSI colors for text output
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// Outcome values
const (
	OutcomePass = "PASS"
	OutcomeFail = "FAIL"
)

// ValidateResult output structure
type ValidateResult struct {
	Profile        string                  `json:"profile"`
	BlockOn        string                  `json:"blockOn"`
	Outcome        string                  `json:"outcome"`
	ConfigWarnings []string                `json:"configWarnings,omitempty"`
	Resources      []ResourceResult        `json:"resources"`
	Report         models.ComplianceReport `json:"report"`
}

// ResourceResult for one evaluated object
type ResourceResult struct {
	Resource   string             `json:"resource"`
	Passed     bool               `json:"passed"`
	Violations []models.Violation `json:"violations"`
	Warnings   []models.Violation `json:"warnings"`
	Fix        *FixResult         `json:"fix,omitempty"`
}

// FixResult summary of an auto-fix run
type FixResult struct {
	Fixed   int          `json:"fixed"`
	Failed  int          `json:"failed"`
	Changes []string     `json:"changes,omitempty"`
	Unfixed []FailedItem `json:"unfixed,omitempty"`
}

// FailedItem violation auto-fix could not resolve
type FailedItem struct {
	RuleID string `json:"ruleId"`
	Reason string `json:"reason"`
}

// BuildValidateResult from final results. fixes is parallel to results and may be nil.
func BuildValidateResult(table *models.EffectiveRuleTable, results []models.EvaluationResult, fixes []*models.AutoFixResult, report models.ComplianceReport, warnings []string) *ValidateResult {
	out := &ValidateResult{
		Profile:        table.Profile(),
		BlockOn:        string(table.BlockOn()),
		Outcome:        OutcomePass,
		ConfigWarnings: warnings,
		Resources:      make([]ResourceResult, 0, len(results)),
		Report:         report,
	}

	for i, r := range results {
		rr := ResourceResult{
			Resource:   r.Resource.String(),
			Passed:     r.Passed,
			Violations: r.Violations,
			Warnings:   r.Warnings,
		}
		if i < len(fixes) && fixes[i] != nil {
			rr.Fix = buildFixResult(fixes[i])
		}
		if !r.Passed {
			out.Outcome = OutcomeFail
		}
		out.Resources = append(out.Resources, rr)
	}
	return out
}

func buildFixResult(fr *models.AutoFixResult) *FixResult {
	out := &FixResult{
		Fixed:   fr.FixedCount,
		Failed:  fr.FailedCount,
		Changes: fr.Changes,
	}
	for _, f := range fr.FailedViolations {
		out.Unfixed = append(out.Unfixed, FailedItem{RuleID: f.Violation.RuleID, Reason: f.Reason})
	}
	return out
}

// FormatTextOutput human readable
func FormatTextOutput(result *ValidateResult) string {
	var sb strings.Builder

	if result.Outcome == OutcomePass {
		sb.WriteString(fmt.Sprintf("%srunnerguard validate: PASS%s (profile=%s, block-on=%s)\n",
			colorGreen, colorReset, result.Profile, result.BlockOn))
	} else {
		sb.WriteString(fmt.Sprintf("%srunnerguard validate: FAIL%s (profile=%s, block-on=%s)\n",
			colorRed, colorReset, result.Profile, result.BlockOn))
	}
	for _, w := range result.ConfigWarnings {
		sb.WriteString(fmt.Sprintf("%sWarning:%s %s\n", colorYellow, colorReset, w))
	}
	sb.WriteString("\n")

	for _, r := range result.Resources {
		formatResource(&sb, r)
	}

	summary := result.Report.Results.Summary
	sb.WriteString(fmt.Sprintf("%sCompliance: %d%%%s (%d/%d rules passed across %d resource(s))\n",
		colorBold, result.Report.OverallCompliance, colorReset, summary.PassedRules, summary.TotalRules, result.Report.Resources))
	for _, rec := range result.Report.Recommendations {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}
	return sb.String()
}

func formatResource(sb *strings.Builder, r ResourceResult) {
	if r.Passed {
		sb.WriteString(fmt.Sprintf("%s✓ %s%s\n", colorGreen, r.Resource, colorReset))
	} else {
		sb.WriteString(fmt.Sprintf("%s✗ %s%s\n", colorRed, r.Resource, colorReset))
	}

	groups := groupBySeverity(append(append([]models.Violation(nil), r.Violations...), r.Warnings...))
	for i := len(models.Severities) - 1; i >= 0; i-- {
		sev := models.Severities[i]
		items := groups[sev]
		if len(items) == 0 {
			continue
		}
		color := severityColor(sev)
		sb.WriteString(fmt.Sprintf("  %s%s (%d)%s\n", color, strings.ToUpper(string(sev)), len(items), colorReset))
		for _, v := range items {
			fixable := ""
			if v.CanAutoFix {
				fixable = " [fixable]"
			}
			sb.WriteString(fmt.Sprintf("  - %s: %s%s\n", v.RuleID, v.Message, fixable))
		}
	}

	if r.Fix != nil {
		sb.WriteString(fmt.Sprintf("  Auto-fix: %d fixed, %d failed\n", r.Fix.Fixed, r.Fix.Failed))
		for _, c := range r.Fix.Changes {
			sb.WriteString(fmt.Sprintf("    + %s\n", c))
		}
		for _, u := range r.Fix.Unfixed {
			sb.WriteString(fmt.Sprintf("    %s! %s: %s%s\n", colorYellow, u.RuleID, u.Reason, colorReset))
		}
	}
	sb.WriteString("\n")
}

func severityColor(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return colorRed
	case models.SeverityMedium:
		return colorYellow
	default:
		return ""
	}
}

// groupBySeverity sorts each group by rule id for deterministic output
func groupBySeverity(violations []models.Violation) map[models.Severity][]models.Violation {
	groups := map[models.Severity][]models.Violation{}
	for _, v := range violations {
		groups[v.Severity] = append(groups[v.Severity], v)
	}
	for k := range groups {
		sort.SliceStable(groups[k], func(i, j int) bool {
			return groups[k][i].RuleID < groups[k][j].RuleID
		})
	}
	return groups
}

// FormatReportText renders a compliance report
func FormatReportText(report models.ComplianceReport) string {
	var sb strings.Builder
	scope := "all namespaces"
	if report.Namespace != "" {
		scope = "namespace " + report.Namespace
	}
	s := report.Results.Summary

	sb.WriteString(fmt.Sprintf("%sCompliance report%s (%s)\n", colorBold, colorReset, scope))
	sb.WriteString(fmt.Sprintf("Overall compliance: %d%%\n", report.OverallCompliance))
	sb.WriteString(fmt.Sprintf("Resources: %d  Rules: %d total, %d passed, %d failed\n",
		report.Resources, s.TotalRules, s.PassedRules, s.FailedRules))

	sb.WriteString("\nViolations by severity:\n")
	for i := len(models.Severities) - 1; i >= 0; i-- {
		sev := models.Severities[i]
		sb.WriteString(fmt.Sprintf("  %-9s %d\n", sev, s.ViolationsBySeverity[sev]))
	}
	sb.WriteString("\nViolations by category:\n")
	for _, cat := range models.Categories {
		sb.WriteString(fmt.Sprintf("  %-12s %d\n", cat, s.ViolationsByCategory[cat]))
	}

	sb.WriteString("\nRecommendations:\n")
	for _, rec := range report.Recommendations {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}
	return sb.String()
}

// FormatJSONOutput raw json
func FormatJSONOutput(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

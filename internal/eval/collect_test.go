package eval

import (
	"strings"
	"testing"

	"github.com/runnerguard/runnerguard/internal/models"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func testTable(blockOn models.Severity) *models.EffectiveRuleTable {
	rule := func(id string, cat models.Category, enabled bool, c models.Condition, action *models.Action) models.PolicyRule {
		return models.PolicyRule{
			ID:          id,
			Name:        id + " name",
			Category:    cat,
			Enabled:     enabled,
			Kinds:       []string{"Pod"},
			Message:     id + " failed",
			Conditions:  []models.Condition{c},
			Remediation: action,
		}
	}
	return models.NewEffectiveRuleTable("test", blockOn, []models.EffectiveRule{
		{Rule: rule("r-privileged", models.CategorySecurity, true,
			models.FieldEquals{Path: "spec.containers[].securityContext.privileged", Value: false},
			&models.Action{Kind: models.ActionDisablePrivileged, Patches: []models.PatchTemplate{
				{Path: "spec.containers[].securityContext", Value: map[string]interface{}{"privileged": false}},
			}}), Severity: models.SeverityCritical},
		{Rule: rule("r-replicas", models.CategoryPerformance, true,
			models.FieldCompare{Path: "spec.replicas", Op: models.OpGTE, Value: 3}, nil), Severity: models.SeverityLow},
		{Rule: rule("r-names", models.CategoryOperations, true,
			models.FieldExists{Path: "spec.containers[].name"}, nil), Severity: models.SeverityHigh},
		{Rule: rule("r-disabled", models.CategoryCost, false,
			models.FieldExists{Path: "spec.nope"}, nil), Severity: models.SeverityCritical},
	}, nil)
}

func TestCollect(t *testing.T) {
	obj := &unstructured.Unstructured{Object: pod()}
	obj.SetKind("Pod")
	obj.SetName("build")

	result := Collect(testTable(models.SeverityHigh), obj, "")

	if result.Passed {
		t.Error("Passed = true, want blocked by r-privileged")
	}
	s := result.Summary
	if s.TotalRules != 3 || s.PassedRules != 1 || s.FailedRules != 2 {
		t.Errorf("summary = %+v, want 3 total, 1 passed, 2 failed", s)
	}
	if s.ViolationsBySeverity[models.SeverityCritical] != 1 || s.ViolationsBySeverity[models.SeverityLow] != 1 {
		t.Errorf("bySeverity = %v", s.ViolationsBySeverity)
	}
	if s.ViolationsByCategory[models.CategorySecurity] != 1 || s.ViolationsByCategory[models.CategoryPerformance] != 1 {
		t.Errorf("byCategory = %v", s.ViolationsByCategory)
	}
	if len(result.Violations) != 1 || len(result.Warnings) != 1 {
		t.Fatalf("violations=%d warnings=%d, want 1 and 1", len(result.Violations), len(result.Warnings))
	}

	v := result.Violations[0]
	if v.RuleID != "r-privileged" || v.Resource.Name != "build" {
		t.Errorf("violation = %+v", v)
	}
	if v.Field != "spec.containers[1].securityContext.privileged" {
		t.Errorf("Field = %q", v.Field)
	}
	if !strings.Contains(v.Message, "not found") || v.CurrentValue != nil {
		t.Errorf("Message = %q, CurrentValue = %v", v.Message, v.CurrentValue)
	}
	if !v.CanAutoFix {
		t.Error("CanAutoFix = false for a rule with remediation")
	}
	if v.SuggestedValue != false {
		t.Errorf("SuggestedValue = %#v, want false", v.SuggestedValue)
	}

	w := result.Warnings[0]
	if w.RuleID != "r-replicas" || w.CurrentValue != int64(2) {
		t.Errorf("warning = %+v", w)
	}
	if !strings.Contains(w.Message, "current value 2") {
		t.Errorf("Message = %q", w.Message)
	}
}

func TestCollect_BlockOnThreshold(t *testing.T) {
	obj := &unstructured.Unstructured{Object: pod()}
	obj.SetKind("Pod")

	result := Collect(testTable(models.SeverityLow), obj, "")
	if len(result.Violations) != 2 || len(result.Warnings) != 0 {
		t.Errorf("blockOn low: violations=%d warnings=%d", len(result.Violations), len(result.Warnings))
	}
}

func TestCollect_KindMismatch(t *testing.T) {
	obj := &unstructured.Unstructured{Object: pod()}
	obj.SetKind("Pod")

	result := Collect(testTable(models.SeverityHigh), obj, "Deployment")
	if result.Summary.TotalRules != 0 || !result.Passed {
		t.Errorf("got %+v, want no applicable rules", result.Summary)
	}
}

func TestCollect_NilResource(t *testing.T) {
	result := Collect(testTable(models.SeverityHigh), nil, "Pod")
	if result.Summary.TotalRules != 3 || result.Summary.FailedRules != 3 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestSuggestedValue(t *testing.T) {
	action := &models.Action{Patches: []models.PatchTemplate{
		{Path: "spec.containers[].securityContext", Value: map[string]interface{}{
			"runAsNonRoot": true,
			"capabilities": map[string]interface{}{"drop": []interface{}{"ALL"}},
		}},
		{Path: "spec.securityContext", Value: map[string]interface{}{"fsGroup": int64(1000)}},
	}}

	tests := []struct {
		field string
		want  string
	}{
		{"spec.containers[2].securityContext.runAsNonRoot", "true"},
		{"spec.containers[0].securityContext.capabilities.drop", `["ALL"]`},
		{"spec.securityContext.fsGroup", "1000"},
		{"spec.unrelated", "<none>"},
	}
	for _, tt := range tests {
		if got := FormatValue(SuggestedValue(action, tt.field)); got != tt.want {
			t.Errorf("SuggestedValue(%q) = %s, want %s", tt.field, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "<none>"},
		{"latest", `"latest"`},
		{int64(5), "5"},
		{false, "false"},
		{map[string]interface{}{"cpu": "2"}, `{"cpu":"2"}`},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

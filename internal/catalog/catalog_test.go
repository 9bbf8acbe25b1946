package catalog

import (
	"sort"
	"strings"
	"testing"

	"github.com/runnerguard/runnerguard/internal/models"
)

func TestBuiltin_Canonical(t *testing.T) {
	rules := Builtin()
	if len(rules) != 18 {
		t.Fatalf("got %d built-in rules, want 18", len(rules))
	}

	ids := IDs()
	if !sort.StringsAreSorted(ids) {
		t.Errorf("IDs not sorted: %v", ids)
	}

	seen := map[string]bool{}
	for _, r := range rules {
		if seen[r.ID] {
			t.Errorf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true

		if !strings.HasPrefix(r.ID, "arc-") {
			t.Errorf("%s: id prefix", r.ID)
		}
		if !r.Category.Valid() || !r.DefaultSeverity.Valid() || !r.Scope.Valid() {
			t.Errorf("%s: category=%q severity=%q scope=%q", r.ID, r.Category, r.DefaultSeverity, r.Scope)
		}
		if !r.Enabled {
			t.Errorf("%s: disabled by default", r.ID)
		}
		if r.Name == "" || r.Message == "" || r.Description == "" {
			t.Errorf("%s: missing name, message or description", r.ID)
		}
		if len(r.Conditions) == 0 {
			t.Errorf("%s: no conditions", r.ID)
		}
		if !r.AppliesTo(KindAutoscalingRunnerSet) || r.AppliesTo("ConfigMap") {
			t.Errorf("%s: kinds = %v", r.ID, r.Kinds)
		}
		if r.Remediation != nil && len(r.Remediation.Patches) == 0 {
			t.Errorf("%s: remediation without patches", r.ID)
		}
	}
}

func TestBuiltin_CategoriesCovered(t *testing.T) {
	counts := map[models.Category]int{}
	for _, r := range Builtin() {
		counts[r.Category]++
	}
	want := map[models.Category]int{
		models.CategorySecurity:    6,
		models.CategoryCompliance:  4,
		models.CategoryPerformance: 2,
		models.CategoryCost:        2,
		models.CategoryOperations:  2,
		models.CategoryNetworking:  2,
	}
	for cat, n := range want {
		if counts[cat] != n {
			t.Errorf("%s: got %d rules, want %d", cat, counts[cat], n)
		}
	}
}

func TestGet(t *testing.T) {
	r, ok := Get("arc-sec-001")
	if !ok {
		t.Fatal("arc-sec-001 not found")
	}
	if r.Remediation == nil || r.Remediation.Kind != models.ActionInjectSecurityContext {
		t.Errorf("arc-sec-001 remediation = %+v", r.Remediation)
	}
	if len(r.Remediation.UnfixableWhen) == 0 {
		t.Error("arc-sec-001 should be unfixable for DinD")
	}

	if _, ok := Get("arc-sec-999"); ok {
		t.Error("Get(arc-sec-999) found a rule")
	}
}

func TestClone_Isolated(t *testing.T) {
	r, _ := Get("arc-comp-001")
	r.Conditions[0] = models.FieldExists{Path: "tampered"}
	r.Remediation.Patches[0].Path = "tampered"
	r.Kinds[0] = "tampered"

	again, _ := Get("arc-comp-001")
	if again.Conditions[0].(models.FieldExists).Path == "tampered" {
		t.Error("conditions shared with catalog")
	}
	if again.Remediation.Patches[0].Path == "tampered" {
		t.Error("patches shared with catalog")
	}
	if again.Kinds[0] == "tampered" {
		t.Error("kinds shared with catalog")
	}
}

package digest

import (
	"strings"
	"testing"

	"github.com/runnerguard/runnerguard/internal/config"
	"github.com/runnerguard/runnerguard/internal/models"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func resolve(t *testing.T, cfg *models.PolicyConfiguration) *models.EffectiveRuleTable {
	t.Helper()
	table, err := config.Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return table
}

func TestTable_Deterministic(t *testing.T) {
	a, err := Table(resolve(t, &models.PolicyConfiguration{Profile: "production"}))
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	b, err := Table(resolve(t, &models.PolicyConfiguration{Profile: "production"}))
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	if a != b {
		t.Errorf("digests differ for equal tables: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, Prefix) || len(a) != len(Prefix)+64 {
		t.Errorf("digest = %q, want sha256:<64 hex>", a)
	}
}

func TestTable_ChangesWithPolicy(t *testing.T) {
	base, _ := Table(resolve(t, &models.PolicyConfiguration{Profile: "production"}))

	disabled := false
	variants := map[string]*models.PolicyConfiguration{
		"profile": {Profile: "staging"},
		"blockOn": {Profile: "production", Global: models.GlobalSettings{BlockOn: models.SeverityCritical}},
		"override": {Profile: "production", RuleOverrides: map[string]models.RuleOverride{
			"arc-sec-004": {Enabled: &disabled},
		}},
	}
	for name, cfg := range variants {
		t.Run(name, func(t *testing.T) {
			got, err := Table(resolve(t, cfg))
			if err != nil {
				t.Fatal(err)
			}
			if got == base {
				t.Errorf("digest unchanged after %s change", name)
			}
		})
	}
}

func TestTable_Nil(t *testing.T) {
	if got, err := Table(nil); got != "" || err != nil {
		t.Errorf("Table(nil) = %q, %v", got, err)
	}
}

func TestResource_IgnoresKeyOrder(t *testing.T) {
	a := &unstructured.Unstructured{Object: map[string]interface{}{
		"kind":     "AutoscalingRunnerSet",
		"metadata": map[string]interface{}{"name": "r", "namespace": "ns"},
		"spec":     map[string]interface{}{"minRunners": int64(1), "maxRunners": int64(5)},
	}}
	b := a.DeepCopy()
	b.Object["spec"] = map[string]interface{}{"maxRunners": int64(5), "minRunners": int64(1)}

	da, err := Resource(a)
	if err != nil {
		t.Fatal(err)
	}
	db, _ := Resource(b)
	if da != db {
		t.Errorf("digests differ: %s vs %s", da, db)
	}

	b.Object["spec"].(map[string]interface{})["maxRunners"] = int64(6)
	if dc, _ := Resource(b); dc == da {
		t.Error("digest unchanged after content change")
	}
}

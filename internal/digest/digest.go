package digest

import (
	"crypto/sha256"
	"fmt"

	"github.com/runnerguard/runnerguard/internal/models"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Prefix of every digest string
const Prefix = "sha256:"

// Of hashes the canonical form of v
func Of(v interface{}) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize: %w", err)
	}
	return fmt.Sprintf("%s%x", Prefix, sha256.Sum256(canonical)), nil
}

// Resource digests an object's content. Key order and YAML formatting do not matter.
func Resource(obj *unstructured.Unstructured) (string, error) {
	if obj == nil {
		return "", nil
	}
	return Of(obj.Object)
}

type tableEntry struct {
	Rule     models.PolicyRule `json:"rule"`
	Severity models.Severity   `json:"severity"`
	AutoFix  bool              `json:"autoFix"`
	Custom   bool              `json:"custom"`
}

type tableDoc struct {
	Profile string          `json:"profile"`
	BlockOn models.Severity `json:"blockOn"`
	Rules   []tableEntry    `json:"rules"`
}

// Table fingerprints the resolved policy: two runs with equal digests enforced the same rules.
// Comments and warnings are excluded.
func Table(t *models.EffectiveRuleTable) (string, error) {
	if t == nil {
		return "", nil
	}
	doc := tableDoc{Profile: t.Profile(), BlockOn: t.BlockOn(), Rules: []tableEntry{}}
	for _, er := range t.Rules() {
		doc.Rules = append(doc.Rules, tableEntry{Rule: er.Rule, Severity: er.Severity, AutoFix: er.AutoFix, Custom: er.Custom})
	}
	return Of(doc)
}

package eval

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/runnerguard/runnerguard/internal/models"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// CheckRule evaluates every condition (AND). It returns the first failing outcome.
func CheckRule(rule models.PolicyRule, obj map[string]interface{}) (Outcome, bool) {
	for _, c := range rule.Conditions {
		out := Evaluate(c, obj)
		if !out.Satisfied {
			return out, false
		}
	}
	return Outcome{Satisfied: true}, true
}

// Collect runs the effective table against one resource. kind overrides the object's kind
// when non-empty.
func Collect(table *models.EffectiveRuleTable, obj *unstructured.Unstructured, kind string) models.EvaluationResult {
	ref := models.RefOf(obj)
	if kind == "" {
		kind = ref.Kind
	}

	result := models.EvaluationResult{
		Resource:    ref,
		Profile:     table.Profile(),
		Passed:      true,
		Violations:  []models.Violation{},
		Warnings:    []models.Violation{},
		Summary:     models.NewSummary(),
		EvaluatedAt: time.Now().UTC(),
	}

	var content map[string]interface{}
	if obj != nil {
		content = obj.Object
	}

	blockOn := table.BlockOn()
	for _, er := range table.Rules() {
		rule := er.Rule
		if !rule.Enabled || !rule.AppliesTo(kind) {
			continue
		}
		result.Summary.TotalRules++

		out, ok := CheckRule(rule, content)
		if ok {
			result.Summary.PassedRules++
			continue
		}

		result.Summary.FailedRules++
		v := buildViolation(er, ref, out)
		result.Summary.ViolationsBySeverity[v.Severity]++
		result.Summary.ViolationsByCategory[v.Category]++

		if v.Severity.AtLeast(blockOn) {
			result.Violations = append(result.Violations, v)
			result.Passed = false
		} else {
			result.Warnings = append(result.Warnings, v)
		}
	}

	return result
}

func buildViolation(er models.EffectiveRule, ref models.ResourceRef, out Outcome) models.Violation {
	rule := er.Rule
	v := models.Violation{
		RuleID:       rule.ID,
		RuleName:     rule.Name,
		Category:     rule.Category,
		Resource:     ref,
		Severity:     er.Severity,
		Field:        out.Field,
		CurrentValue: out.Observed,
		CanAutoFix:   rule.Fixable(),
	}

	msg := rule.Message
	if msg == "" {
		msg = rule.Name
	}
	if out.Present {
		v.Message = fmt.Sprintf("%s (field %s, current value %s)", msg, out.Field, FormatValue(out.Observed))
	} else {
		v.Message = fmt.Sprintf("%s (field %s not found)", msg, out.Field)
		v.CurrentValue = nil
	}

	if rule.Remediation != nil {
		v.SuggestedValue = SuggestedValue(rule.Remediation, out.Field)
	}
	return v
}

// SuggestedValue looks up the remediation template value at field
func SuggestedValue(action *models.Action, field string) interface{} {
	generic := GenericPath(field)
	for _, p := range action.Patches {
		if generic == p.Path {
			return p.Value
		}
		if !strings.HasPrefix(generic, p.Path+".") {
			continue
		}
		node := p.Value
		for _, key := range strings.Split(strings.TrimPrefix(generic, p.Path+"."), ".") {
			m, ok := node.(map[string]interface{})
			if !ok {
				node = nil
				break
			}
			node = m[key]
		}
		if node != nil {
			return node
		}
	}
	if len(action.Patches) == 1 {
		return action.Patches[0].Value
	}
	return nil
}

// GenericPath turns containers[2].image back into containers[].image
func GenericPath(concrete string) string {
	var b strings.Builder
	for i := 0; i < len(concrete); i++ {
		c := concrete[i]
		if c != '[' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(concrete[i:], ']')
		if end < 0 {
			b.WriteString(concrete[i:])
			break
		}
		b.WriteString(WildcardSuffix)
		i += end
	}
	return b.String()
}

// FormatValue renders an observed value for messages
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "<none>"
	case string:
		return fmt.Sprintf("%q", val)
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

// Package remediation computes and applies additive fixes for rule violations.
package remediation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/runnerguard/runnerguard/internal/eval"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/observability/logging"
	"github.com/wI2L/jsondiff"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// Audit annotations stamped on a remediated resource
const (
	AnnotationTimestamp = "runnerguard.io/autofix-timestamp"
	AnnotationFixed     = "runnerguard.io/autofix-fixed"
	AnnotationFailed    = "runnerguard.io/autofix-failed"
	AnnotationRules     = "runnerguard.io/autofix-rules"
)

// Failure reasons
const (
	ReasonNoRemediation   = "rule has no automatic remediation"
	ReasonAutoFixDisabled = "auto-fix is disabled for this rule"
	ReasonConflict        = "remediation conflicts with user-set value"
	ReasonNoResource      = "no resource to fix"
)

var errConflict = errors.New(ReasonConflict)

// Fixer applies remediations. The zero value is usable.
type Fixer struct {
	Now    func() time.Time
	Logger logging.Logger
}

func (f *Fixer) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Fixer) logger() logging.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return logging.NewNop()
}

// Fix remediates violations in input order. obj is never modified; FixedResource is a new object.
func (f *Fixer) Fix(obj *unstructured.Unstructured, violations []models.Violation, table *models.EffectiveRuleTable) models.AutoFixResult {
	result := models.AutoFixResult{
		Fixed:            []models.FixedRule{},
		FailedViolations: []models.FailedFix{},
	}
	if obj == nil {
		for _, v := range violations {
			result.FailedViolations = append(result.FailedViolations, models.FailedFix{Violation: v, Reason: ReasonNoResource})
		}
		result.FailedCount = len(result.FailedViolations)
		return result
	}

	log := f.logger()
	original, err := json.Marshal(obj.Object)
	if err != nil {
		for _, v := range violations {
			result.FailedViolations = append(result.FailedViolations, models.FailedFix{Violation: v, Reason: err.Error()})
		}
		result.FailedCount = len(result.FailedViolations)
		result.FixedResource = obj.DeepCopy()
		return result
	}

	current := original
	state, _ := decode(current)
	done := make(map[string]bool, len(violations))

	for _, v := range violations {
		if done[v.RuleID] {
			continue
		}
		er, ok := table.Get(v.RuleID)
		if !ok || !er.Enabled() {
			continue
		}
		if _, passes := eval.CheckRule(er.Rule, state); passes {
			continue
		}
		done[v.RuleID] = true

		fail := func(reason string) {
			result.FailedViolations = append(result.FailedViolations, models.FailedFix{Violation: v, Reason: reason})
			log.Warn("remediation", "auto-fix failed", "rule_id", v.RuleID, "resource", v.Resource.String(), "reason", reason)
		}

		if !v.CanAutoFix || !er.Rule.Fixable() {
			fail(ReasonNoRemediation)
			continue
		}
		if !er.AutoFix {
			fail(ReasonAutoFixDisabled)
			continue
		}
		if reason, blocked := unfixable(er.Rule.Remediation, state); blocked {
			fail(reason)
			continue
		}

		next, patch, err := apply(current, er.Rule.Remediation)
		if err != nil {
			fail(err.Error())
			continue
		}
		nextState, err := decode(next)
		if err != nil {
			fail(err.Error())
			continue
		}
		if _, passes := eval.CheckRule(er.Rule, nextState); !passes {
			fail(ReasonConflict)
			continue
		}

		current, state = next, nextState
		result.Fixed = append(result.Fixed, models.FixedRule{
			RuleID: er.Rule.ID,
			Kind:   er.Rule.Remediation.Kind,
			Patch:  json.RawMessage(patch),
		})
		log.Info("remediation", "auto-fix applied", "rule_id", er.Rule.ID, "resource", v.Resource.String())
	}

	result.FixedCount = len(result.Fixed)
	result.FailedCount = len(result.FailedViolations)

	fixed := &unstructured.Unstructured{Object: state}
	if fixed.Object == nil {
		fixed.Object = map[string]interface{}{}
	}
	if result.FixedCount+result.FailedCount > 0 {
		f.stamp(fixed, result)
	}
	result.FixedResource = fixed

	final, err := json.Marshal(fixed.Object)
	if err == nil {
		if ops, err := jsondiff.CompareJSON(original, final); err == nil {
			result.Operations = ops
			result.Changes = Translate(ops)
		}
	}
	return result
}

// unfixable reports the action's reason when any unfixableWhen condition holds
func unfixable(action *models.Action, state map[string]interface{}) (string, bool) {
	for _, c := range action.UnfixableWhen {
		if eval.Evaluate(c, state).Satisfied {
			reason := action.Reason
			if reason == "" {
				reason = "resource architecture conflicts with " + string(action.Kind)
			}
			return reason, true
		}
	}
	return "", false
}

// apply fills missing fields from the templates, then derives and applies an RFC 7386 merge patch
func apply(current []byte, action *models.Action) ([]byte, []byte, error) {
	candidate, err := decode(current)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range action.Patches {
		Fill(candidate, p.Path, p.Value)
	}
	target, err := json.Marshal(candidate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode candidate: %w", err)
	}

	patch, err := jsonpatch.CreateMergePatch(current, target)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create merge patch: %w", err)
	}
	if isEmptyPatch(patch) {
		return nil, nil, errConflict
	}

	next, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply merge patch: %w", err)
	}
	return next, patch, nil
}

func isEmptyPatch(patch []byte) bool {
	return strings.TrimSpace(string(patch)) == "{}"
}

// decode keeps integers as int64 the way unstructured content expects
func decode(data []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := utiljson.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode resource: %w", err)
	}
	return out, nil
}

// stamp records the run on the resource. A run that fixed nothing leaves an existing
// stamp alone; otherwise the fixed count and rule list accumulate across runs.
func (f *Fixer) stamp(obj *unstructured.Unstructured, result models.AutoFixResult) {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		annotations = map[string]string{}
	}
	prior, stamped := annotations[AnnotationFixed]
	if stamped && result.FixedCount == 0 {
		return
	}

	total := result.FixedCount
	var ids []string
	seen := map[string]bool{}
	if stamped {
		if n, err := strconv.Atoi(prior); err == nil && n > 0 {
			total += n
		}
		for _, id := range strings.Split(annotations[AnnotationRules], ",") {
			if id = strings.TrimSpace(id); id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	for _, fr := range result.Fixed {
		if !seen[fr.RuleID] {
			seen[fr.RuleID] = true
			ids = append(ids, fr.RuleID)
		}
	}

	annotations[AnnotationTimestamp] = f.now().UTC().Format(time.RFC3339)
	annotations[AnnotationFixed] = strconv.Itoa(total)
	annotations[AnnotationFailed] = strconv.Itoa(result.FailedCount)
	annotations[AnnotationRules] = strings.Join(ids, ",")
	obj.SetAnnotations(annotations)
}

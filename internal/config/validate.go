package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/profile"
)

// Validate checks enum values, profile ids and custom rule shape. CEL is compiled later by Resolve.
func Validate(cfg *models.PolicyConfiguration) error {
	if cfg == nil {
		return nil
	}

	if cfg.Profile != "" {
		if _, err := profile.Get(cfg.Profile); err != nil {
			return wrapValidation("profile", err)
		}
	}

	g := cfg.Global
	if g.Enforcement != "" && !g.Enforcement.Valid() {
		return wrapValidation("global.enforcement", &models.EnumError{Kind: "enforcement mode", Value: string(g.Enforcement)})
	}
	if g.BlockOn != "" && !g.BlockOn.Valid() {
		return wrapValidation("global.blockOn", &models.EnumError{Kind: "severity", Value: string(g.BlockOn)})
	}

	for cat, setting := range cfg.Categories {
		field := "categories." + string(cat)
		if !cat.Valid() {
			return wrapValidation(field, &models.EnumError{Kind: "category", Value: string(cat)})
		}
		if !setting.Enforcement.Valid() {
			return wrapValidation(field+".enforcement", &models.EnumError{Kind: "enforcement mode", Value: string(setting.Enforcement)})
		}
	}

	for id, o := range cfg.RuleOverrides {
		if strings.TrimSpace(id) == "" {
			return validationErr("ruleOverrides", "empty rule id")
		}
		if o.Severity != nil && !o.Severity.Valid() {
			return wrapValidation("ruleOverrides."+id+".severity", &models.EnumError{Kind: "severity", Value: string(*o.Severity)})
		}
	}

	seen := map[string]bool{}
	for i, spec := range cfg.CustomRules {
		if _, err := decodeRule(spec, fmt.Sprintf("customRules[%d]", i)); err != nil {
			return err
		}
		if seen[spec.ID] {
			return validationErr(fmt.Sprintf("customRules[%d].id", i), "duplicate rule id %q", spec.ID)
		}
		seen[spec.ID] = true
	}
	return nil
}

// decodeRule turns a custom rule spec into a PolicyRule with typed conditions
func decodeRule(spec models.RuleSpec, field string) (models.PolicyRule, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return models.PolicyRule{}, validationErr(field+".id", "rule id is required")
	}
	field = fmt.Sprintf("%s(%s)", field, spec.ID)

	if !spec.Category.Valid() {
		return models.PolicyRule{}, wrapValidation(field+".category", &models.EnumError{Kind: "category", Value: string(spec.Category)})
	}
	if !spec.DefaultSeverity.Valid() {
		return models.PolicyRule{}, wrapValidation(field+".defaultSeverity", &models.EnumError{Kind: "severity", Value: string(spec.DefaultSeverity)})
	}
	scope := spec.Scope
	if scope == "" {
		scope = models.ScopeResource
	}
	if !scope.Valid() {
		return models.PolicyRule{}, wrapValidation(field+".scope", &models.EnumError{Kind: "scope", Value: string(scope)})
	}
	if len(spec.Conditions) == 0 {
		return models.PolicyRule{}, validationErr(field+".conditions", "at least one condition is required")
	}

	rule := models.PolicyRule{
		ID:              spec.ID,
		Name:            spec.Name,
		Description:     spec.Description,
		Category:        spec.Category,
		DefaultSeverity: spec.DefaultSeverity,
		Scope:           scope,
		Enabled:         spec.Enabled == nil || *spec.Enabled,
		Kinds:           append([]string(nil), spec.Kinds...),
		Message:         spec.Message,
	}
	if rule.Name == "" {
		rule.Name = spec.ID
	}

	conds, err := decodeConditions(spec.Conditions, field+".conditions")
	if err != nil {
		return models.PolicyRule{}, err
	}
	rule.Conditions = conds

	if spec.Remediation != nil {
		action, err := decodeAction(spec.Remediation, field+".remediation")
		if err != nil {
			return models.PolicyRule{}, err
		}
		rule.Remediation = action
	}
	return rule, nil
}

func decodeConditions(specs []models.ConditionSpec, field string) ([]models.Condition, error) {
	out := make([]models.Condition, 0, len(specs))
	for i, cs := range specs {
		c, err := cs.Condition()
		if err != nil {
			f := fmt.Sprintf("%s[%d]", field, i)
			var enumErr *models.EnumError
			if errors.As(err, &enumErr) {
				return nil, wrapValidation(f, err)
			}
			if cs.Type == models.TypeFieldMatches {
				return nil, compileErr(f, err)
			}
			return nil, wrapValidation(f, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func decodeAction(spec *models.ActionSpec, field string) (*models.Action, error) {
	if len(spec.Patches) == 0 {
		return nil, validationErr(field+".patches", "at least one patch is required")
	}
	action := &models.Action{
		Kind:    spec.Kind,
		Patches: make([]models.PatchTemplate, 0, len(spec.Patches)),
		Reason:  spec.Reason,
	}
	for i, p := range spec.Patches {
		if strings.TrimSpace(p.Path) == "" {
			return nil, validationErr(fmt.Sprintf("%s.patches[%d].path", field, i), "patch path is required")
		}
		if p.Value == nil {
			return nil, validationErr(fmt.Sprintf("%s.patches[%d].value", field, i), "patch value is required")
		}
		action.Patches = append(action.Patches, p)
	}
	if len(spec.UnfixableWhen) > 0 {
		conds, err := decodeConditions(spec.UnfixableWhen, field+".unfixableWhen")
		if err != nil {
			return nil, err
		}
		action.UnfixableWhen = conds
	}
	return action, nil
}

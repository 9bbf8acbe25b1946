package config

import (
	"fmt"
	"sort"

	"github.com/runnerguard/runnerguard/internal/catalog"
	"github.com/runnerguard/runnerguard/internal/eval"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/profile"
)

// Resolve merges built-ins, the selected profile, global enforcement, category settings, rule
// overrides and custom rules into a new table. cfg and the catalog are never modified.
func Resolve(cfg *models.PolicyConfiguration) (*models.EffectiveRuleTable, error) {
	if cfg == nil {
		cfg = &models.PolicyConfiguration{}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	prof, err := profile.Get(SelectProfile(cfg))
	if err != nil {
		return nil, wrapValidation("profile", err)
	}

	enforcement := categoryEnforcement(cfg, prof)
	params := mergeParameters(cfg, prof)
	globalAutoFix := cfg.Global.AutoFix == nil || *cfg.Global.AutoFix

	var warnings []string
	builtins := catalog.Builtin()
	known := make(map[string]bool, len(builtins)+len(cfg.CustomRules))
	for _, r := range builtins {
		known[r.ID] = true
	}

	type candidate struct {
		rule   models.PolicyRule
		custom bool
	}
	candidates := make([]candidate, 0, len(builtins)+len(cfg.CustomRules))
	for _, r := range builtins {
		candidates = append(candidates, candidate{rule: r})
	}
	for i, spec := range cfg.CustomRules {
		field := fmt.Sprintf("customRules[%d]", i)
		if known[spec.ID] {
			return nil, validationErr(field+".id", "custom rule id %q duplicates a built-in rule", spec.ID)
		}
		rule, err := decodeRule(spec, field)
		if err != nil {
			return nil, err
		}
		known[rule.ID] = true
		candidates = append(candidates, candidate{rule: rule, custom: true})
	}

	unknown := make([]string, 0)
	for id := range cfg.RuleOverrides {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	for _, id := range unknown {
		warnings = append(warnings, fmt.Sprintf("ruleOverrides: unknown rule id %q ignored", id))
	}

	effective := make([]models.EffectiveRule, 0, len(candidates))
	for _, c := range candidates {
		field := "rules." + c.rule.ID
		rule, err := bindRule(c.rule, params, field)
		if err != nil {
			return nil, err
		}

		er := models.EffectiveRule{
			Rule:     rule,
			Severity: rule.DefaultSeverity,
			Custom:   c.custom,
		}
		if mode, ok := enforcement[rule.Category]; ok {
			applyEnforcement(&er, mode)
		}

		autoFix := globalAutoFix
		if o, ok := cfg.RuleOverrides[rule.ID]; ok {
			if o.Enabled != nil {
				er.Rule.Enabled = *o.Enabled
			}
			if o.Severity != nil {
				er.Severity = *o.Severity
			}
			if o.AutoFix != nil {
				autoFix = *o.AutoFix
			}
			er.Comment = o.Comment
		}
		er.AutoFix = autoFix && rule.Fixable()

		effective = append(effective, er)
	}

	blockOn := cfg.Global.BlockOn
	if blockOn == "" {
		blockOn = models.SeverityHigh
	}
	return models.NewEffectiveRuleTable(prof.Name, blockOn, effective, warnings), nil
}

// ResolveOrDefault falls back to the built-in table when cfg is invalid. The error becomes a warning.
func ResolveOrDefault(cfg *models.PolicyConfiguration) (*models.EffectiveRuleTable, []string) {
	table, err := Resolve(cfg)
	if err == nil {
		return table, table.Warnings()
	}
	fallback, ferr := Resolve(nil)
	if ferr != nil {
		// built-ins failing to resolve is a programming error
		panic(fmt.Sprintf("built-in rules failed to resolve: %v", ferr))
	}
	warnings := append(fallback.Warnings(), fmt.Sprintf("configuration ignored, using built-in defaults: %v", err))
	return models.NewEffectiveRuleTable(fallback.Profile(), fallback.BlockOn(), fallback.Rules(), warnings), warnings
}

// SelectProfile picks the explicit profile, else one detected from the environment text
func SelectProfile(cfg *models.PolicyConfiguration) string {
	switch {
	case cfg == nil:
		return profile.Default
	case cfg.Profile != "":
		return cfg.Profile
	case cfg.Environment != "":
		return profile.Detect(cfg.Environment)
	default:
		return profile.Default
	}
}

func categoryEnforcement(cfg *models.PolicyConfiguration, prof *profile.Profile) map[models.Category]models.EnforcementMode {
	out := make(map[models.Category]models.EnforcementMode, len(models.Categories))
	for cat, mode := range prof.Enforcement {
		out[cat] = mode
	}
	if g := cfg.Global.Enforcement; g != "" {
		for _, cat := range models.Categories {
			out[cat] = g
		}
	}
	for cat, setting := range cfg.Categories {
		out[cat] = setting.Enforcement
	}
	return out
}

func mergeParameters(cfg *models.PolicyConfiguration, prof *profile.Profile) map[string]float64 {
	out := make(map[string]float64, len(prof.Parameters)+len(cfg.Parameters))
	for k, v := range prof.Parameters {
		out[k] = v
	}
	for k, v := range cfg.Parameters {
		out[k] = v
	}
	return out
}

// applyEnforcement: strict raises to critical for security and compliance and to high elsewhere,
// advisory caps at medium, disabled turns the rule off
func applyEnforcement(er *models.EffectiveRule, mode models.EnforcementMode) {
	switch mode {
	case models.EnforcementDisabled:
		er.Rule.Enabled = false
	case models.EnforcementStrict:
		er.Rule.Enabled = true
		switch er.Rule.Category {
		case models.CategorySecurity, models.CategoryCompliance:
			er.Severity = models.SeverityCritical
		default:
			er.Severity = models.SeverityHigh
		}
	case models.EnforcementAdvisory:
		er.Rule.Enabled = true
		if er.Severity.AtLeast(models.SeverityHigh) {
			er.Severity = models.SeverityMedium
		}
	}
}

// bindRule rewrites conditions with parameters substituted and CEL compiled
func bindRule(rule models.PolicyRule, params map[string]float64, field string) (models.PolicyRule, error) {
	conds, err := bindConditions(rule.Conditions, params, field+".conditions")
	if err != nil {
		return rule, err
	}
	rule.Conditions = conds

	if rule.Remediation != nil {
		action := *rule.Remediation
		action.Patches = append([]models.PatchTemplate(nil), action.Patches...)
		if action.UnfixableWhen, err = bindConditions(action.UnfixableWhen, params, field+".remediation.unfixableWhen"); err != nil {
			return rule, err
		}
		rule.Remediation = &action
	}
	return rule, nil
}

func bindConditions(conds []models.Condition, params map[string]float64, field string) ([]models.Condition, error) {
	if conds == nil {
		return nil, nil
	}
	out := make([]models.Condition, 0, len(conds))
	for i, c := range conds {
		bound, err := bindCondition(c, params, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, bound)
	}
	return out, nil
}

func bindCondition(c models.Condition, params map[string]float64, field string) (models.Condition, error) {
	switch c := c.(type) {
	case models.FieldCompare:
		if c.Param != "" {
			if v, ok := params[c.Param]; ok {
				c.Value = v
			}
		}
		return c, nil
	case models.Expression:
		if c.Program != nil {
			return c, nil
		}
		prg, err := eval.CompileExpression(c.Expr)
		if err != nil {
			return nil, compileErr(field, err)
		}
		c.Program = prg
		return c, nil
	case models.AnyOf:
		children, err := bindConditions(c.Conditions, params, field+".anyOf")
		if err != nil {
			return nil, err
		}
		return models.AnyOf{Conditions: children}, nil
	default:
		return c, nil
	}
}

package models

import (
	"encoding/json"
	"strings"
)

// Category groups rules for enforcement
type Category string

const (
	CategorySecurity    Category = "security"
	CategoryCompliance  Category = "compliance"
	CategoryPerformance Category = "performance"
	CategoryCost        Category = "cost"
	CategoryOperations  Category = "operations"
	CategoryNetworking  Category = "networking"
)

// Categories in declaration order. Reports and recommendations follow this order.
var Categories = []Category{
	CategorySecurity,
	CategoryCompliance,
	CategoryPerformance,
	CategoryCost,
	CategoryOperations,
	CategoryNetworking,
}

// Valid category
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Severity of a violation
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lowest first
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank orders severities; unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid severity
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as severe as other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity from string
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.Valid() {
		return "", &EnumError{Kind: "severity", Value: s}
	}
	return sev, nil
}

// Scope a rule is evaluated at
type Scope string

const (
	ScopeCluster   Scope = "cluster"
	ScopeNamespace Scope = "namespace"
	ScopeResource  Scope = "resource"
)

// Valid scope
func (s Scope) Valid() bool {
	return s == ScopeCluster || s == ScopeNamespace || s == ScopeResource
}

// EnforcementMode per category
type EnforcementMode string

const (
	EnforcementDisabled EnforcementMode = "disabled"
	EnforcementAdvisory EnforcementMode = "advisory"
	EnforcementStrict   EnforcementMode = "strict"
)

// Valid mode
func (m EnforcementMode) Valid() bool {
	return m == EnforcementDisabled || m == EnforcementAdvisory || m == EnforcementStrict
}

// ParseEnforcementMode from string
func ParseEnforcementMode(s string) (EnforcementMode, error) {
	mode := EnforcementMode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.Valid() {
		return "", &EnumError{Kind: "enforcement mode", Value: s}
	}
	return mode, nil
}

// EnumError for unknown enum values
type EnumError struct {
	Kind  string
	Value string
}

func (e *EnumError) Error() string {
	return "unknown " + e.Kind + " " + `"` + e.Value + `"`
}

// ActionKind names a remediation
type ActionKind string

const (
	ActionInjectSecurityContext ActionKind = "injectSecurityContext"
	ActionDisablePrivileged     ActionKind = "disablePrivileged"
	ActionDisableEscalation     ActionKind = "disablePrivilegeEscalation"
	ActionDropCapabilities      ActionKind = "dropCapabilities"
	ActionInjectResourceLimits  ActionKind = "injectResourceLimits"
	ActionInjectResourceRequest ActionKind = "injectResourceRequests"
	ActionSetMaxRunners         ActionKind = "setMaxRunners"
	ActionSetImagePullPolicy    ActionKind = "setImagePullPolicy"
	ActionSetDNSPolicy          ActionKind = "setDNSPolicy"
)

// PatchTemplate is merged additively at Path. Path uses the same syntax as conditions.
type PatchTemplate struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

// Action remediation for a fixable rule
type Action struct {
	Kind    ActionKind      `json:"kind"`
	Patches []PatchTemplate `json:"patches"`
	// UnfixableWhen marks resources whose architecture conflicts with the fix.
	UnfixableWhen []Condition `json:"-"`
	Reason        string      `json:"reason,omitempty"`
}

// PolicyRule governance check
type PolicyRule struct {
	ID              string
	Name            string
	Description     string
	Category        Category
	DefaultSeverity Severity
	Scope           Scope
	Enabled         bool
	Kinds           []string
	Message         string
	Conditions      []Condition
	Remediation     *Action
}

// Fixable when a remediation exists
func (r PolicyRule) Fixable() bool {
	return r.Remediation != nil && len(r.Remediation.Patches) > 0
}

// AppliesTo kind; empty Kinds matches every kind
func (r PolicyRule) AppliesTo(kind string) bool {
	if len(r.Kinds) == 0 || kind == "" {
		return true
	}
	for _, k := range r.Kinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}

// Spec converts back to wire form
func (r PolicyRule) Spec() RuleSpec {
	enabled := r.Enabled
	spec := RuleSpec{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Category:        r.Category,
		DefaultSeverity: r.DefaultSeverity,
		Scope:           r.Scope,
		Enabled:         &enabled,
		Kinds:           r.Kinds,
		Message:         r.Message,
		Conditions:      make([]ConditionSpec, 0, len(r.Conditions)),
	}
	for _, c := range r.Conditions {
		spec.Conditions = append(spec.Conditions, c.Spec())
	}
	if r.Remediation != nil {
		action := &ActionSpec{
			Kind:    r.Remediation.Kind,
			Patches: r.Remediation.Patches,
			Reason:  r.Remediation.Reason,
		}
		for _, c := range r.Remediation.UnfixableWhen {
			action.UnfixableWhen = append(action.UnfixableWhen, c.Spec())
		}
		spec.Remediation = action
	}
	return spec
}

func (r PolicyRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Spec())
}

// RuleSpec wire form of PolicyRule (customRules entries)
type RuleSpec struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Category        Category        `json:"category"`
	DefaultSeverity Severity        `json:"defaultSeverity"`
	Scope           Scope           `json:"scope,omitempty"`
	Enabled         *bool           `json:"enabled,omitempty"`
	Kinds           []string        `json:"kinds,omitempty"`
	Message         string          `json:"message,omitempty"`
	Conditions      []ConditionSpec `json:"conditions"`
	Remediation     *ActionSpec     `json:"remediation,omitempty"`
}

// ActionSpec wire form of Action
type ActionSpec struct {
	Kind          ActionKind      `json:"kind"`
	Patches       []PatchTemplate `json:"patches"`
	UnfixableWhen []ConditionSpec `json:"unfixableWhen,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

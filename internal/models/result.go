package models

import (
	"encoding/json"
	"time"

	"github.com/wI2L/jsondiff"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ResourceRef identifies the evaluated object
type ResourceRef struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind"`
	Namespace  string `json:"namespace,omitempty"`
	Name       string `json:"name"`
}

func (r ResourceRef) String() string {
	if r.Namespace == "" {
		return r.Kind + "/" + r.Name
	}
	return r.Kind + "/" + r.Namespace + "/" + r.Name
}

// RefOf unstructured object
func RefOf(obj *unstructured.Unstructured) ResourceRef {
	if obj == nil {
		return ResourceRef{}
	}
	return ResourceRef{
		APIVersion: obj.GetAPIVersion(),
		Kind:       obj.GetKind(),
		Namespace:  obj.GetNamespace(),
		Name:       obj.GetName(),
	}
}

// Violation of one rule by one resource
type Violation struct {
	RuleID         string      `json:"ruleId"`
	RuleName       string      `json:"ruleName"`
	Category       Category    `json:"category"`
	Resource       ResourceRef `json:"resource"`
	Severity       Severity    `json:"severity"`
	Message        string      `json:"message"`
	Field          string      `json:"field,omitempty"`
	CurrentValue   interface{} `json:"currentValue"`
	SuggestedValue interface{} `json:"suggestedValue,omitempty"`
	CanAutoFix     bool        `json:"canAutoFix"`
}

// Summary tallies for one or many evaluations
type Summary struct {
	TotalRules           int              `json:"totalRules"`
	PassedRules          int              `json:"passedRules"`
	FailedRules          int              `json:"failedRules"`
	ViolationsBySeverity map[Severity]int `json:"violationsBySeverity"`
	ViolationsByCategory map[Category]int `json:"violationsByCategory"`
}

// NewSummary with initialized maps
func NewSummary() Summary {
	return Summary{
		ViolationsBySeverity: map[Severity]int{},
		ViolationsByCategory: map[Category]int{},
	}
}

// EvaluationResult for one resource
type EvaluationResult struct {
	Resource    ResourceRef `json:"resource"`
	Profile     string      `json:"profile,omitempty"`
	Passed      bool        `json:"passed"`
	Violations  []Violation `json:"violations"`
	Warnings    []Violation `json:"warnings"`
	Summary     Summary     `json:"summary"`
	EvaluatedAt time.Time   `json:"evaluatedAt"`
}

// All violations, blocking first
func (r EvaluationResult) All() []Violation {
	out := make([]Violation, 0, len(r.Violations)+len(r.Warnings))
	out = append(out, r.Violations...)
	return append(out, r.Warnings...)
}

// FixedRule records an applied remediation
type FixedRule struct {
	RuleID string          `json:"ruleId"`
	Kind   ActionKind      `json:"kind"`
	Patch  json.RawMessage `json:"patch"` // RFC 7386 merge patch
}

// FailedFix is a violation auto-fix could not resolve
type FailedFix struct {
	Violation Violation `json:"violation"`
	Reason    string    `json:"reason"`
}

// AutoFixResult of one auto-fix run
type AutoFixResult struct {
	FixedResource    *unstructured.Unstructured `json:"fixedResource"`
	FixedCount       int                        `json:"fixedCount"`
	FailedCount      int                        `json:"failedCount"`
	Fixed            []FixedRule                `json:"fixed"`
	FailedViolations []FailedFix                `json:"failedViolations"`
	Operations       jsondiff.Patch             `json:"operations,omitempty"` // RFC 6902, input to output
	Changes          []string                   `json:"changes,omitempty"`
}

// ComplianceReport across evaluations
type ComplianceReport struct {
	OverallCompliance int           `json:"overallCompliance"`
	Namespace         string        `json:"namespace,omitempty"`
	Resources         int           `json:"resources"`
	Results           ReportResults `json:"results"`
	Recommendations   []string      `json:"recommendations"`
	GeneratedAt       time.Time     `json:"generatedAt"`
}

// ReportResults wrapper
type ReportResults struct {
	Summary Summary `json:"summary"`
}

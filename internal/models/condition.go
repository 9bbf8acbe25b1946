package models

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
)

// Match quantifier across values fanned out by a [] path segment
type Match string

const (
	MatchAll Match = "all"
	MatchAny Match = "any"
)

// CompareOp numeric comparison
type CompareOp string

const (
	OpGTE CompareOp = "gte"
	OpLT  CompareOp = "lt"
)

// ConditionType discriminator used on the wire
type ConditionType string

const (
	TypeFieldExists    ConditionType = "fieldExists"
	TypeFieldNotExists ConditionType = "fieldNotExists"
	TypeFieldEquals    ConditionType = "fieldEquals"
	TypeFieldNotEquals ConditionType = "fieldNotEquals"
	TypeFieldCompare   ConditionType = "fieldCompare"
	TypeFieldMatches   ConditionType = "fieldMatches"
	TypeFieldOneOf     ConditionType = "fieldOneOf"
	TypeImagePinned    ConditionType = "imagePinned"
	TypeExpression     ConditionType = "expression"
	TypeAnyOf          ConditionType = "anyOf"
)

// Condition is a sealed union. The evaluator switches over the concrete types below.
type Condition interface {
	Type() ConditionType
	Spec() ConditionSpec
	isCondition()
}

// FieldExists holds when the path resolves
type FieldExists struct {
	Path  string
	Match Match
}

// FieldNotExists holds when the path is absent
type FieldNotExists struct {
	Path  string
	Match Match
}

// FieldEquals holds when the resolved value equals Value
type FieldEquals struct {
	Path  string
	Value interface{}
	Match Match
}

// FieldNotEquals holds when the resolved value differs from Value, including when absent
type FieldNotEquals struct {
	Path  string
	Value interface{}
	Match Match
}

// FieldCompare numeric comparison. Param names a profile parameter that replaces Value on resolution.
type FieldCompare struct {
	Path  string
	Op    CompareOp
	Value float64
	Param string
	Match Match
}

// FieldMatches regex over scalar values
type FieldMatches struct {
	Path    string
	Pattern string
	Regexp  *regexp.Regexp
	Match   Match
}

// FieldOneOf set membership over scalar values
type FieldOneOf struct {
	Path   string
	Values []interface{}
	Match  Match
}

// ImagePinned holds when the image reference names a digest or a tag other than latest
type ImagePinned struct {
	Path  string
	Match Match
}

// Expression CEL predicate over the `resource` variable. Program is set on resolution.
type Expression struct {
	Expr    string
	Program cel.Program
}

// AnyOf is an explicit OR group
type AnyOf struct {
	Conditions []Condition
}

func (FieldExists) isCondition() {}
func (FieldNotExists) isCondition() {}
func (FieldEquals) isCondition() {}
func (FieldNotEquals) isCondition() {}
func (FieldCompare) isCondition() {}
func (FieldMatches) isCondition() {}
func (FieldOneOf) isCondition() {}
func (ImagePinned) isCondition() {}
func (Expression) isCondition() {}
func (AnyOf) isCondition() {}

func (FieldExists) Type() ConditionType { return TypeFieldExists }
func (FieldNotExists) Type() ConditionType { return TypeFieldNotExists }
func (FieldEquals) Type() ConditionType { return TypeFieldEquals }
func (FieldNotEquals) Type() ConditionType { return TypeFieldNotEquals }
func (FieldCompare) Type() ConditionType { return TypeFieldCompare }
func (FieldMatches) Type() ConditionType { return TypeFieldMatches }
func (FieldOneOf) Type() ConditionType { return TypeFieldOneOf }
func (ImagePinned) Type() ConditionType { return TypeImagePinned }
func (Expression) Type() ConditionType { return TypeExpression }
func (AnyOf) Type() ConditionType { return TypeAnyOf }

func (c FieldExists) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldExists, Path: c.Path, Match: c.Match}
}

func (c FieldNotExists) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldNotExists, Path: c.Path, Match: c.Match}
}

func (c FieldEquals) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldEquals, Path: c.Path, Value: c.Value, Match: c.Match}
}

func (c FieldNotEquals) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldNotEquals, Path: c.Path, Value: c.Value, Match: c.Match}
}

func (c FieldCompare) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldCompare, Path: c.Path, Op: c.Op, Value: c.Value, Param: c.Param, Match: c.Match}
}

func (c FieldMatches) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldMatches, Path: c.Path, Pattern: c.Pattern, Match: c.Match}
}

func (c FieldOneOf) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeFieldOneOf, Path: c.Path, Values: c.Values, Match: c.Match}
}

func (c ImagePinned) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeImagePinned, Path: c.Path, Match: c.Match}
}

func (c Expression) Spec() ConditionSpec {
	return ConditionSpec{Type: TypeExpression, Expr: c.Expr}
}

func (c AnyOf) Spec() ConditionSpec {
	spec := ConditionSpec{Type: TypeAnyOf}
	for _, child := range c.Conditions {
		spec.AnyOf = append(spec.AnyOf, child.Spec())
	}
	return spec
}

// Matches compiles the pattern; for static rule tables
func Matches(path, pattern string) FieldMatches {
	return FieldMatches{Path: path, Pattern: pattern, Regexp: regexp.MustCompile(pattern)}
}

// ConditionSpec wire form of Condition
type ConditionSpec struct {
	Type    ConditionType   `json:"type"`
	Path    string          `json:"path,omitempty"`
	Match   Match           `json:"match,omitempty"`
	Value   interface{}     `json:"value,omitempty"`
	Op      CompareOp       `json:"op,omitempty"`
	Param   string          `json:"param,omitempty"`
	Pattern string          `json:"pattern,omitempty"`
	Values  []interface{}   `json:"values,omitempty"`
	Expr    string          `json:"expr,omitempty"`
	AnyOf   []ConditionSpec `json:"anyOf,omitempty"`
}

// Condition decodes the spec. CEL expressions are left uncompiled.
func (s ConditionSpec) Condition() (Condition, error) {
	match := s.Match
	if match == "" {
		match = MatchAll
	}
	if match != MatchAll && match != MatchAny {
		return nil, &EnumError{Kind: "match quantifier", Value: string(s.Match)}
	}

	needPath := func() error {
		if s.Path == "" {
			return fmt.Errorf("%s condition requires a path", s.Type)
		}
		return nil
	}

	switch s.Type {
	case TypeFieldExists:
		if err := needPath(); err != nil {
			return nil, err
		}
		return FieldExists{Path: s.Path, Match: match}, nil
	case TypeFieldNotExists:
		if err := needPath(); err != nil {
			return nil, err
		}
		return FieldNotExists{Path: s.Path, Match: match}, nil
	case TypeFieldEquals:
		if err := needPath(); err != nil {
			return nil, err
		}
		return FieldEquals{Path: s.Path, Value: s.Value, Match: match}, nil
	case TypeFieldNotEquals:
		if err := needPath(); err != nil {
			return nil, err
		}
		return FieldNotEquals{Path: s.Path, Value: s.Value, Match: match}, nil
	case TypeFieldCompare:
		if err := needPath(); err != nil {
			return nil, err
		}
		if s.Op != OpGTE && s.Op != OpLT {
			return nil, &EnumError{Kind: "compare operator", Value: string(s.Op)}
		}
		var value float64
		switch v := s.Value.(type) {
		case float64:
			value = v
		case int:
			value = float64(v)
		case int64:
			value = float64(v)
		case nil:
			if s.Param == "" {
				return nil, fmt.Errorf("fieldCompare on %s requires a numeric value or param", s.Path)
			}
		default:
			return nil, fmt.Errorf("fieldCompare on %s: value %v is not numeric", s.Path, s.Value)
		}
		return FieldCompare{Path: s.Path, Op: s.Op, Value: value, Param: s.Param, Match: match}, nil
	case TypeFieldMatches:
		if err := needPath(); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("fieldMatches on %s: %w", s.Path, err)
		}
		return FieldMatches{Path: s.Path, Pattern: s.Pattern, Regexp: re, Match: match}, nil
	case TypeFieldOneOf:
		if err := needPath(); err != nil {
			return nil, err
		}
		if len(s.Values) == 0 {
			return nil, fmt.Errorf("fieldOneOf on %s requires at least one value", s.Path)
		}
		return FieldOneOf{Path: s.Path, Values: s.Values, Match: match}, nil
	case TypeImagePinned:
		if err := needPath(); err != nil {
			return nil, err
		}
		return ImagePinned{Path: s.Path, Match: match}, nil
	case TypeExpression:
		if s.Expr == "" {
			return nil, fmt.Errorf("expression condition requires expr")
		}
		return Expression{Expr: s.Expr}, nil
	case TypeAnyOf:
		if len(s.AnyOf) == 0 {
			return nil, fmt.Errorf("anyOf condition requires at least one member")
		}
		group := AnyOf{Conditions: make([]Condition, 0, len(s.AnyOf))}
		for i, child := range s.AnyOf {
			c, err := child.Condition()
			if err != nil {
				return nil, fmt.Errorf("anyOf[%d]: %w", i, err)
			}
			group.Conditions = append(group.Conditions, c)
		}
		return group, nil
	default:
		return nil, &EnumError{Kind: "condition type", Value: string(s.Type)}
	}
}

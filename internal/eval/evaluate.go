package eval

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/runnerguard/runnerguard/internal/models"
)

// Outcome of one condition. Field and Observed describe the first slot that decided a failure.
type Outcome struct {
	Satisfied bool
	Field     string
	Observed  interface{}
	Present   bool
}

// Evaluate a condition against a resource object. It never panics on malformed input.
func Evaluate(c models.Condition, obj map[string]interface{}) Outcome {
	switch c := c.(type) {
	case models.FieldExists:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool { return s.Present })
	case models.FieldNotExists:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool { return !s.Present })
	case models.FieldEquals:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool {
			return s.Present && Equal(s.Value, c.Value)
		})
	case models.FieldNotEquals:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool {
			return !s.Present || !Equal(s.Value, c.Value)
		})
	case models.FieldCompare:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool {
			return s.Present && compare(s.Value, c.Op, c.Value)
		})
	case models.FieldMatches:
		re := c.Regexp
		if re == nil {
			var err error
			if re, err = regexp.Compile(c.Pattern); err != nil {
				return Outcome{Field: c.Path}
			}
		}
		return quantify(obj, c.Path, c.Match, func(s Slot) bool {
			str, ok := scalarString(s)
			return ok && re.MatchString(str)
		})
	case models.FieldOneOf:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool {
			if !s.Present || !isScalar(s.Value) {
				return false
			}
			for _, v := range c.Values {
				if Equal(s.Value, v) {
					return true
				}
			}
			return false
		})
	case models.ImagePinned:
		return quantify(obj, c.Path, c.Match, func(s Slot) bool {
			str, ok := s.Value.(string)
			return s.Present && ok && imagePinned(str)
		})
	case models.Expression:
		return evalExpression(c, obj)
	case models.AnyOf:
		var first Outcome
		for i, child := range c.Conditions {
			out := Evaluate(child, obj)
			if out.Satisfied {
				return out
			}
			if i == 0 {
				first = out
			}
		}
		first.Satisfied = false
		return first
	default:
		return Outcome{}
	}
}

// quantify applies pred over every slot of path with ALL or ANY semantics
func quantify(obj map[string]interface{}, path string, match models.Match, pred func(Slot) bool) Outcome {
	slots := Resolve(obj, path)
	if match == models.MatchAny {
		for _, s := range slots {
			if pred(s) {
				return Outcome{Satisfied: true, Field: s.Path, Observed: s.Value, Present: s.Present}
			}
		}
		s := slots[0]
		return Outcome{Field: s.Path, Observed: s.Value, Present: s.Present}
	}

	for _, s := range slots {
		if !pred(s) {
			return Outcome{Field: s.Path, Observed: s.Value, Present: s.Present}
		}
	}
	s := slots[0]
	return Outcome{Satisfied: true, Field: path, Observed: s.Value, Present: Present(slots)}
}

// Equal compares JSON-shaped values, treating every numeric representation alike
func Equal(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func compare(v interface{}, op models.CompareOp, want float64) bool {
	got, ok := toFloat(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return false
			}
			got = f
		} else {
			return false
		}
	}
	switch op {
	case models.OpGTE:
		return got >= want
	case models.OpLT:
		return got < want
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func scalarString(s Slot) (string, bool) {
	if !s.Present || !isScalar(s.Value) {
		return "", false
	}
	if str, ok := s.Value.(string); ok {
		return str, true
	}
	return fmt.Sprint(s.Value), true
}

// imagePinned rejects untagged references and the latest tag
func imagePinned(ref string) bool {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return false
	}
	switch r := parsed.(type) {
	case name.Digest:
		return true
	case name.Tag:
		return r.TagStr() != name.DefaultTag
	default:
		return false
	}
}

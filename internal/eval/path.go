// Package eval resolves field paths against resource objects and evaluates rule conditions.
package eval

import (
	"strconv"
	"strings"
)

// WildcardSuffix marks a segment that fans out over an array
const WildcardSuffix = "[]"

// Segment of a parsed path
type Segment struct {
	Key    string
	FanOut bool
}

// ParsePath splits "a.b[].c" into segments
func ParsePath(path string) []Segment {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		if strings.HasSuffix(p, WildcardSuffix) {
			segs = append(segs, Segment{Key: strings.TrimSuffix(p, WildcardSuffix), FanOut: true})
			continue
		}
		segs = append(segs, Segment{Key: p})
	}
	return segs
}

// Slot is one place a path can land. Fan-out yields one slot per array element; a missing
// field yields an absent slot so that ALL semantics see elements lacking the field.
type Slot struct {
	Path    string // concrete path, e.g. spec.containers[1].image
	Value   interface{}
	Present bool
}

// Resolve returns the slots for path. It never returns an empty slice for a non-empty path.
func Resolve(obj map[string]interface{}, path string) []Slot {
	segs := ParsePath(path)
	if len(segs) == 0 {
		return []Slot{{Path: path}}
	}
	var node interface{}
	if obj != nil {
		node = obj
	}
	return resolve(node, segs, "")
}

// Present reports whether any slot holds a value
func Present(slots []Slot) bool {
	for _, s := range slots {
		if s.Present {
			return true
		}
	}
	return false
}

// Values of present slots
func Values(slots []Slot) []interface{} {
	var out []interface{}
	for _, s := range slots {
		if s.Present {
			out = append(out, s.Value)
		}
	}
	return out
}

func resolve(node interface{}, segs []Segment, prefix string) []Slot {
	if len(segs) == 0 {
		return []Slot{{Path: prefix, Value: node, Present: true}}
	}

	seg := segs[0]
	here := join(prefix, seg.Key)
	absent := func() []Slot {
		at := here
		if seg.FanOut {
			at += WildcardSuffix
		}
		return []Slot{{Path: join(at, rest(segs[1:]))}}
	}

	next := node
	if seg.Key != "" {
		m, ok := node.(map[string]interface{})
		if !ok {
			return absent()
		}
		v, ok := m[seg.Key]
		if !ok || v == nil {
			return absent()
		}
		next = v
	}

	if !seg.FanOut {
		return resolve(next, segs[1:], here)
	}

	items, ok := next.([]interface{})
	if !ok || len(items) == 0 {
		return absent()
	}
	var out []Slot
	for i, item := range items {
		out = append(out, resolve(item, segs[1:], here+"["+strconv.Itoa(i)+"]")...)
	}
	return out
}

func join(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func rest(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.FanOut {
			parts = append(parts, s.Key+WildcardSuffix)
			continue
		}
		parts = append(parts, s.Key)
	}
	return strings.Join(parts, ".")
}

package remediation

import (
	"github.com/runnerguard/runnerguard/internal/eval"
	"k8s.io/apimachinery/pkg/runtime"
)

// Fill merges tmpl into obj at path, adding only fields that are missing. A [] segment fans out
// over existing array elements; missing intermediate objects are created, missing arrays are not.
func Fill(obj map[string]interface{}, path string, tmpl interface{}) {
	segs := eval.ParsePath(path)
	if obj == nil || len(segs) == 0 {
		return
	}
	fillAt(obj, segs, tmpl)
}

func fillAt(parent map[string]interface{}, segs []eval.Segment, tmpl interface{}) {
	seg := segs[0]
	last := len(segs) == 1

	if seg.FanOut {
		items, ok := parent[seg.Key].([]interface{})
		if !ok {
			return
		}
		for i, item := range items {
			if last {
				items[i] = mergeMissing(item, tmpl)
				continue
			}
			if m, ok := item.(map[string]interface{}); ok {
				fillAt(m, segs[1:], tmpl)
			}
		}
		return
	}

	if last {
		parent[seg.Key] = mergeMissing(parent[seg.Key], tmpl)
		return
	}

	child, ok := parent[seg.Key]
	if !ok || child == nil {
		child = map[string]interface{}{}
		parent[seg.Key] = child
	}
	m, ok := child.(map[string]interface{})
	if !ok {
		return
	}
	fillAt(m, segs[1:], tmpl)
}

// mergeMissing keeps every existing value and adds template fields that are absent
func mergeMissing(existing, tmpl interface{}) interface{} {
	if existing == nil {
		return runtime.DeepCopyJSONValue(tmpl)
	}
	em, ok := existing.(map[string]interface{})
	if !ok {
		return existing
	}
	tm, ok := tmpl.(map[string]interface{})
	if !ok {
		return existing
	}
	for k, tv := range tm {
		em[k] = mergeMissing(em[k], tv)
	}
	return em
}

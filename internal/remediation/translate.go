package remediation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wI2L/jsondiff"
)

// Translate patches to english
func Translate(patches jsondiff.Patch) []string {
	if len(patches) == 0 {
		return nil
	}

	var translations []string
	seen := make(map[string]bool)

	for _, op := range patches {
		translation := translateOperation(op)
		if translation != "" && !seen[translation] {
			seen[translation] = true
			translations = append(translations, translation)
		}
	}

	return translations
}

func translateOperation(op jsondiff.Operation) string {
	path := DottedPath(op.Path)

	switch op.Type {
	case jsondiff.OperationAdd:
		return translateAdd(path, op.Value)
	case jsondiff.OperationRemove:
		return "Removed " + path + "."
	case jsondiff.OperationReplace:
		return translateReplace(path, op.Value)
	default:
		return ""
	}
}

// translateAdd
func translateAdd(path string, value interface{}) string {
	if key, ok := annotationKey(path); ok {
		return fmt.Sprintf("Recorded audit annotation %s = %s.", key, render(value))
	}
	return fmt.Sprintf("Added %s = %s.", path, render(value))
}

// translateReplace
func translateReplace(path string, value interface{}) string {
	if key, ok := annotationKey(path); ok {
		return fmt.Sprintf("Updated audit annotation %s = %s.", key, render(value))
	}
	return fmt.Sprintf("Set %s to %s.", path, render(value))
}

func annotationKey(path string) (string, bool) {
	const prefix = "metadata.annotations."
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(path, prefix)
	return key, strings.HasPrefix(key, "runnerguard.io/")
}

// DottedPath converts a JSON pointer to the dotted form used in rule paths, indexing arrays with [n]:
// /spec/template/spec/containers/0/securityContext -> spec.template.spec.containers[0].securityContext
func DottedPath(pointer string) string {
	if pointer == "" || pointer == "/" {
		return "(root)"
	}
	tokens := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	var b strings.Builder
	for i, tok := range tokens {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		if isIndex(tok) && i > 0 {
			b.WriteString("[" + tok + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func isIndex(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func render(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

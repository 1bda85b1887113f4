package condition

import (
	"fmt"
	"strings"

	"github.com/relaycrm/relaycrm/pkg/template"
)

const (
	OpEquals         = "equals"
	OpNotEquals      = "not_equals"
	OpContains       = "contains"
	OpDoesNotContain = "does_not_contain"
	OpStartsWith     = "starts_with"
	OpIsEmpty        = "is_empty"
	OpIsNotEmpty     = "is_not_empty"
)

// Evaluate resolves field as a dot path over data and compares it against
// value. Both sides are compared as lower-cased strings; a missing field
// resolves to the empty string. Unknown operators fail closed.
func Evaluate(field, operator, value string, data map[string]interface{}) bool {
	resolved := resolveString(data, field)
	left := strings.ToLower(resolved)
	right := strings.ToLower(value)

	switch operator {
	case OpEquals:
		return left == right
	case OpNotEquals:
		return left != right
	case OpContains:
		return strings.Contains(left, right)
	case OpDoesNotContain:
		return !strings.Contains(left, right)
	case OpStartsWith:
		return strings.HasPrefix(left, right)
	case OpIsEmpty:
		return strings.TrimSpace(resolved) == ""
	case OpIsNotEmpty:
		return strings.TrimSpace(resolved) != ""
	default:
		return false
	}
}

func resolveString(data map[string]interface{}, field string) string {
	value, ok := template.Resolve(data, field)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

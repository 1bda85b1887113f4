package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// Render replaces every {{dot.path}} occurrence in tmpl by resolving the
// path against data. Unresolved paths stay verbatim, delimiters included, so
// missing data is never silently dropped. Resolution is a single linear pass
// with no nested expansion; re-rendering an already rendered string is a
// no-op.
func Render(tmpl string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := Resolve(data, path)
		if !ok {
			return match
		}
		return stringify(value)
	})
}

// Resolve walks a dot-separated path over nested map data. Every segment
// must exist as a key of the current value; failing at any segment reports
// the path as unresolved.
func Resolve(data map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = data
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(value interface{}) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

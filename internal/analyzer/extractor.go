// internal/analyzer/extractor.go
package analyzer

import "strings"

// FencedJSONExtractor locates the first well-formed JSON object inside
// free-form model output. It strips markdown code fences, then scans for
// a balanced top-level object, honoring strings and escapes.
type FencedJSONExtractor struct{}

func (FencedJSONExtractor) Extract(raw string) (string, bool) {
	text := strings.TrimSpace(raw)

	// Models in JSON mode still occasionally wrap the object in
	// ```json ... ``` fences.
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		if block, ok := balancedObject(rest); ok {
			return block, true
		}
	}

	return balancedObject(text)
}

// balancedObject returns the first {...} span with matched braces.
func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// skip structural characters inside strings
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

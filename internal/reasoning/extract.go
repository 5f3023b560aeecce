package reasoning

import "encoding/json"

// extractJSON locates the first top-level JSON object in free-form
// model text. Models wrap payloads in prose or markdown fences, so
// the scan starts at the first '{' and tracks brace depth, honoring
// string literals and escapes, until the object closes.
func extractJSON(text string) ([]byte, bool) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, false
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
			// Ignore structural characters inside strings
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				candidate := []byte(text[start : i+1])
				if json.Valid(candidate) {
					return candidate, true
				}
				return nil, false
			}
		}
	}

	return nil, false
}

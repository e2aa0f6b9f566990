package central

import (
	"errors"
	"strings"
)

var (
	// ErrNoJSONObject is returned when the text contains no opening brace
	ErrNoJSONObject = errors.New("no JSON object in text")
	// ErrUnbalancedJSONObject is returned when the first object never closes
	ErrUnbalancedJSONObject = errors.New("unbalanced JSON object in text")
)

// ExtractJSONObject returns the first balanced JSON object embedded in text.
//
// Scanning starts at the first '{' and counts nesting depth until the
// matching '}' is found. Braces inside string literals (including escaped
// quotes) do not count. The returned fragment is not validated as JSON.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", ErrUnbalancedJSONObject
}

package llm

import (
	"fmt"
	"strings"
)

// StripFences removes a markdown code fence wrapping, if present.
// Models frequently wrap JSON in ```json ... ``` despite instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "json" || first == "JSON" || first == "" {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced top-level JSON object
// in the text, tolerating prose before and after it.
func ExtractJSONObject(s string) (string, error) {
	return extractBalanced(StripFences(s), '{', '}')
}

// ExtractJSONArray returns the first balanced top-level JSON array
// in the text, tolerating prose before and after it.
func ExtractJSONArray(s string) (string, error) {
	return extractBalanced(StripFences(s), '[', ']')
}

func extractBalanced(s string, open, closing byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", fmt.Errorf("no %q found in response", string(open))
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced %q in response", string(open))
}

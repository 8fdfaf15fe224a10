package llm

import (
	"fmt"
	"regexp"
	"strings"
)

var reFence = regexp.MustCompile("```(?:json|JSON)?[ \t]*\r?\n?")

// Repair strips Markdown code fences from a model answer and returns the
// first balanced JSON object in it. Braces inside string literals are
// ignored. An object that never closes is an error.
func Repair(raw string) (string, error) {
	s := strings.TrimSpace(reFence.ReplaceAllString(raw, ""))
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object in response", ErrInvalidAIResponse)
	}

	depth := 0
	inString, escaped := false, false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated JSON object", ErrInvalidAIResponse)
}

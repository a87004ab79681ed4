// Package jsonx tolerantly extracts JSON objects from LLM chat output,
// which routinely wraps the payload in prose or markdown code fences.
package jsonx

import (
	"encoding/json"
	"strings"
)

// ExtractObject finds the first balanced {...} block in s and decodes it
// into v. It tolerates leading/trailing prose and ```json fences. If no
// balanced object is found, or decoding fails, it returns false and
// leaves v untouched so the caller can fall back to a deterministic
// default.
func ExtractObject(s string, v interface{}) bool {
	block, ok := firstBalancedObject(s)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(block), v) == nil
}

// firstBalancedObject scans s for the first top-level {...} span, honoring
// string literals and escapes so that braces inside quoted strings don't
// confuse the depth counter.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

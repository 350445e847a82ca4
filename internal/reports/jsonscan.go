package reports

import (
	"bytes"
	"encoding/json"
)

// firstObject returns the first balanced {...} substring of s. Braces inside
// JSON strings are ignored.
func firstObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
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

// decodeObject decodes the first balanced object of s, keeping numbers as
// json.Number.
func decodeObject(s string) (map[string]any, bool) {
	candidate, ok := firstObject(s)
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

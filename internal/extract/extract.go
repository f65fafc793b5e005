// Package extract pulls the first JSON value out of free-form model output.
package extract

import (
	"encoding/json"
	"strings"
)

// Extract returns the first balanced JSON object or array in text. Prose and
// markdown fences around the value are ignored. It returns nil when no
// candidate is found or the candidate does not parse; there is exactly one
// parse attempt.
func Extract(text string) json.RawMessage {
	span, ok := firstBalanced(text)
	if !ok {
		return nil
	}
	if !json.Valid([]byte(span)) {
		return nil
	}
	return json.RawMessage(span)
}

// Decode extracts the first JSON value and unmarshals it into v.
func Decode(text string, v interface{}) bool {
	raw := Extract(text)
	if raw == nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// firstBalanced finds the first '{' or '[' and walks to its matching close,
// skipping brackets inside string literals.
func firstBalanced(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

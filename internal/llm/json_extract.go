package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(\\w*)[ \\t]*\\n(.*?)\\n?```")

// ErrNoJSON is returned when a response holds no complete JSON document.
var ErrNoJSON = errors.New("no valid JSON document found in response")

// ExtractJSON returns the first complete JSON object or array in a model
// response. Fenced blocks tagged json (or untagged) win over bare JSON.
// Truncated or malformed documents are rejected, never repaired.
func ExtractJSON(response string) (string, error) {
	for _, m := range fencedBlock.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(m[1])
		if lang != "" && lang != "json" {
			continue
		}
		body := strings.TrimSpace(m[2])
		if (strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")) && json.Valid([]byte(body)) {
			return body, nil
		}
	}

	for i := 0; i < len(response); i++ {
		if response[i] != '{' && response[i] != '[' {
			continue
		}
		if doc := balanced(response[i:]); doc != "" && json.Valid([]byte(doc)) {
			return doc, nil
		}
	}
	return "", ErrNoJSON
}

// balanced returns the prefix of s up to the bracket closing s[0], or ""
// when the document never closes.
func balanced(s string) string {
	open := s[0]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

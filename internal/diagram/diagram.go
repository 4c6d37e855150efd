// Package diagram pulls Mermaid diagrams out of model prose.
//
// Grammar: a diagram is a fenced block opened by a line of three backticks
// immediately followed by the tag "mermaid" (any case, optional trailing
// blanks) and closed by the next line of three backticks. Everything
// between the fence lines is the diagram code. Tilde fences are not
// recognised.
package diagram

import (
	"regexp"
	"strings"
)

// Diagram is one diagram extracted from an answer.
type Diagram struct {
	SourceQuestion string `json:"sourceQuestion"`
	Code           string `json:"code"`
}

var mermaidBlock = regexp.MustCompile("(?is)```mermaid[ \\t]*\\r?\\n(.*?)```")

// Extract returns the diagrams in answer in order of appearance.
// Absent or empty blocks yield an empty, non-nil slice.
func Extract(question, answer string) []Diagram {
	out := []Diagram{}
	for _, m := range mermaidBlock.FindAllStringSubmatch(answer, -1) {
		code := strings.TrimSpace(m[1])
		if code == "" {
			continue
		}
		out = append(out, Diagram{SourceQuestion: question, Code: code})
	}
	return out
}

// forbiddenLabelChars break the renderer's node label parser.
const forbiddenLabelChars = "()[]{}%"

// Sanitize removes characters the renderer cannot parse from text inside
// node labels. Shape delimiters outside quoted labels are left untouched,
// so only quoted label text is rewritten.
func Sanitize(code string) string {
	var sb strings.Builder
	sb.Grow(len(code))

	inLabel := false
	for _, r := range code {
		if r == '"' {
			inLabel = !inLabel
			sb.WriteRune(r)
			continue
		}
		if inLabel && strings.ContainsRune(forbiddenLabelChars, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SanitizeAll returns a copy of diagrams with every code sanitized.
func SanitizeAll(diagrams []Diagram) []Diagram {
	out := make([]Diagram, len(diagrams))
	for i, d := range diagrams {
		out[i] = Diagram{SourceQuestion: d.SourceQuestion, Code: Sanitize(d.Code)}
	}
	return out
}

// Flatten concatenates diagram lists preserving order.
func Flatten(lists ...[]Diagram) []Diagram {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Diagram, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{
			name:   "no blocks",
			answer: "Plain reasoning without any diagram.",
			want:   []string{},
		},
		{
			name:   "single block",
			answer: "Intro\n```mermaid\ngraph TD\n  A --> B\n```\nOutro",
			want:   []string{"graph TD\n  A --> B"},
		},
		{
			name:   "multiple blocks keep order",
			answer: "```mermaid\ngraph LR\nX-->Y\n```\ntext\n```Mermaid  \nflowchart TD\nP-->Q\n```",
			want:   []string{"graph LR\nX-->Y", "flowchart TD\nP-->Q"},
		},
		{
			name:   "other languages ignored",
			answer: "```python\nprint(1)\n```\n```mermaid\ngraph TD\nA-->B\n```",
			want:   []string{"graph TD\nA-->B"},
		},
		{
			name:   "empty block skipped",
			answer: "```mermaid\n   \n```",
			want:   []string{},
		},
		{
			name:   "unterminated block ignored",
			answer: "```mermaid\ngraph TD\nA-->B",
			want:   []string{},
		},
		{
			name:   "crlf line endings",
			answer: "```mermaid\r\ngraph TD\r\nA-->B\r\n```",
			want:   []string{"graph TD\r\nA-->B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract("why?", tt.answer)
			require.NotNil(t, got)
			codes := make([]string, len(got))
			for i, d := range got {
				assert.Equal(t, "why?", d.SourceQuestion)
				codes[i] = d.Code
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom([]string{
			"prose ", "\n", "```mermaid\n", "```", "graph TD\n", "A-->B\n", "```json\n{}\n```", "~~~",
		}), 0, 20).Draw(t, "parts")

		var text string
		for _, p := range parts {
			text += p
		}

		first := Extract("q", text)
		second := Extract("q", text)
		if len(first) != len(second) {
			t.Fatalf("length changed: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("diagram %d differs", i)
			}
		}
	})
}

func TestSanitize(t *testing.T) {
	in := `graph TD
A["Rule (of law)"] --> B{"Scope [50%]"}`
	want := `graph TD
A["Rule of law"] --> B{"Scope 50"}`
	assert.Equal(t, want, Sanitize(in))
}

func TestSanitizeAll(t *testing.T) {
	in := []Diagram{
		{SourceQuestion: "q1", Code: `A["Anger (ira)"] --> B`},
		{SourceQuestion: "q2", Code: "A[plain] --> B"},
	}
	got := SanitizeAll(in)
	assert.Equal(t, []Diagram{
		{SourceQuestion: "q1", Code: `A["Anger ira"] --> B`},
		{SourceQuestion: "q2", Code: "A[plain] --> B"},
	}, got)
	assert.Equal(t, `A["Anger (ira)"] --> B`, in[0].Code, "input is not modified")
	assert.NotNil(t, SanitizeAll(nil))
}

func TestFlatten(t *testing.T) {
	a := []Diagram{{Code: "1"}, {Code: "2"}}
	b := []Diagram{{Code: "3"}}
	got := Flatten(a, nil, b)
	assert.Equal(t, []Diagram{{Code: "1"}, {Code: "2"}, {Code: "3"}}, got)
	assert.NotNil(t, Flatten())
}

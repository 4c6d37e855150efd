package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{"raw object", `{"a":1}`, `{"a":1}`, false},
		{"prose around object", "Sure! {\"a\": {\"b\": [1,2]}} hope that helps", `{"a": {"b": [1,2]}}`, false},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"untagged fence", "```\n[1,2]\n```", `[1,2]`, false},
		{"skips other fences", "```python\n{'a': 1}\n```\n{\"b\":2}", `{"b":2}`, false},
		{"brace inside string", `{"a":"}"}`, `{"a":"}"}`, false},
		{"truncated", `{"a": [1, 2`, "", true},
		{"no json", "I cannot help with that.", "", true},
		{"malformed", `{"a": 1,}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFormatter_PrintTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatText, &buf)

	require.NoError(t, f.PrintTable([]string{"id", "name"}, [][]string{{"c1", "Stoics"}, {"c22", ""}}))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "c1   Stoics")
	assert.Contains(t, out, "c22")
}

func TestJSONFormatter_PrintTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(FormatJSON, &buf)

	require.NoError(t, f.PrintTable([]string{"id", "name"}, [][]string{{"c1", "Stoics"}, {"c2"}}))
	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []map[string]string{
		{"id": "c1", "name": "Stoics"},
		{"id": "c2", "name": ""},
	}, rows)
}

func TestJSONFormatter_Messages(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)

	require.NoError(t, f.PrintSuccess("deleted"))
	var msg map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &msg))
	assert.Equal(t, map[string]string{"status": "success", "message": "deleted"}, msg)
}

package graph

import (
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// String reads a string column. Missing or null values yield "".
// Any other type is a shape mismatch.
func String(row map[string]any, key string) (string, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %q: expected string, got %T", key, v)
	}
	return s, nil
}

// Float reads a numeric column as float64.
func Float(row map[string]any, key string) (float64, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("column %q: missing", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("column %q: expected number, got %T", key, v)
	}
}

// OptionalFloat is Float for nullable columns.
func OptionalFloat(row map[string]any, key string) (*float64, error) {
	if v, ok := row[key]; !ok || v == nil {
		return nil, nil
	}
	f, err := Float(row, key)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Time reads a temporal column. Neo4j dates, local datetimes and
// ISO-8601 strings are accepted.
func Time(row map[string]any, key string) (*time.Time, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return nil, nil
	}
	var t time.Time
	switch d := v.(type) {
	case time.Time:
		t = d
	case neo4j.Date:
		t = d.Time()
	case neo4j.LocalDateTime:
		t = d.Time()
	case string:
		parsed, err := parseDate(d)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", key, err)
		}
		t = parsed
	default:
		return nil, fmt.Errorf("column %q: expected date, got %T", key, v)
	}
	return &t, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

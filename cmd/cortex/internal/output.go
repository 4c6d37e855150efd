package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	// FormatText is human-readable text output
	FormatText OutputFormat = "text"
	// FormatJSON is structured JSON output
	FormatJSON OutputFormat = "json"
)

// Formatter interface defines methods for formatting command output
type Formatter interface {
	PrintSuccess(message string) error
	PrintWarning(message string) error
	// PrintTable prints rows under headers. JSON output keys each row by header.
	PrintTable(headers []string, rows [][]string) error
	PrintJSON(data any) error
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// TextFormatter implements Formatter for human-readable text output
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a formatter for human-readable output. A nil writer means stdout.
func NewTextFormatter(w io.Writer) *TextFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &TextFormatter{writer: w}
}

// PrintSuccess prints a success message with a check mark.
func (f *TextFormatter) PrintSuccess(message string) error {
	_, err := fmt.Fprintln(f.writer, successStyle.Render("✓ "+message))
	return err
}

// PrintWarning prints a highlighted warning.
func (f *TextFormatter) PrintWarning(message string) error {
	_, err := fmt.Fprintln(f.writer, warningStyle.Render("! "+message))
	return err
}

// PrintTable prints a table using text/tabwriter for aligned columns
func (f *TextFormatter) PrintTable(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)

	headerLine := make([]string, len(headers))
	for i, h := range headers {
		headerLine[i] = headerStyle.Render(strings.ToUpper(h))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(headerLine, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// PrintJSON prints data as indented JSON.
func (f *TextFormatter) PrintJSON(data any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// JSONFormatter implements Formatter for structured JSON output
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a formatter for machine-readable output. A nil writer means stdout.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

// PrintSuccess prints {"status":"success","message":...}.
func (f *JSONFormatter) PrintSuccess(message string) error {
	return f.PrintJSON(map[string]string{"status": "success", "message": message})
}

// PrintWarning prints {"status":"warning","message":...}.
func (f *JSONFormatter) PrintWarning(message string) error {
	return f.PrintJSON(map[string]string{"status": "warning", "message": message})
}

// PrintTable prints the rows as an array of objects keyed by header.
func (f *JSONFormatter) PrintTable(headers []string, rows [][]string) error {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rowMap := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				rowMap[header] = row[i]
			} else {
				rowMap[header] = ""
			}
		}
		data = append(data, rowMap)
	}
	return f.PrintJSON(data)
}

// PrintJSON prints data as indented JSON.
func (f *JSONFormatter) PrintJSON(data any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// NewFormatter creates a new Formatter based on the output format
func NewFormatter(format OutputFormat, w io.Writer) Formatter {
	if format == FormatJSON {
		return NewJSONFormatter(w)
	}
	return NewTextFormatter(w)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/turn"
)

var (
	diagramTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	streamWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// eventPrinter writes turn events as they arrive. Text output streams the
// answer to out and puts diagrams after it; JSON output is one event
// object per line, the same shape the HTTP stream carries.
type eventPrinter struct {
	out    io.Writer
	errOut io.Writer
	format internal.OutputFormat

	wroteChunk bool
}

func (p *eventPrinter) print(ev turn.Event) error {
	if p.format == internal.FormatJSON {
		b, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.out, "%s\n", b)
		return err
	}

	switch ev.Type {
	case turn.EventChunk:
		p.wroteChunk = true
		_, err := io.WriteString(p.out, ev.Chunk)
		return err
	case turn.EventDiagrams:
		if p.wroteChunk {
			if _, err := io.WriteString(p.out, "\n"); err != nil {
				return err
			}
		}
		for _, d := range ev.Diagrams {
			if _, err := fmt.Fprintf(p.out, "\n%s\n```mermaid\n%s\n```\n",
				diagramTitleStyle.Render(d.SourceQuestion), d.Code); err != nil {
				return err
			}
		}
		return nil
	case turn.EventWarning:
		_, err := fmt.Fprintln(p.errOut, streamWarnStyle.Render("! "+ev.Message))
		return err
	}
	return nil
}

// drain prints every event and always consumes the channel to the end so
// the producer can finish. An error event becomes ExitTurnFailed.
func (p *eventPrinter) drain(events <-chan turn.Event) error {
	var (
		writeErr error
		failed   bool
	)
	for ev := range events {
		if ev.Type == turn.EventError {
			failed = true
		}
		if writeErr == nil {
			writeErr = p.print(ev)
		}
	}
	if failed {
		return internal.NewCLIError(internal.ExitTurnFailed, turn.GenericErrorMessage)
	}
	return writeErr
}

package turn

import (
	"encoding/json"

	"github.com/zero-day-ai/cortex/internal/diagram"
)

// GenericErrorMessage is the only error text a client ever sees.
const GenericErrorMessage = "I'm sorry, but I encountered an error while processing your query. Please try again or rephrase your question."

// EventType discriminates stream events.
type EventType string

const (
	EventChunk    EventType = "chunk"
	EventDiagrams EventType = "diagrams"
	EventWarning  EventType = "warning"
	EventError    EventType = "error"
)

// Event is one element of a turn's response stream. On the wire each
// event is a single-key JSON object named after its type.
type Event struct {
	Type     EventType
	Chunk    string
	Diagrams []diagram.Diagram
	Message  string
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventChunk:
		return json.Marshal(map[string]string{"chunk": e.Chunk})
	case EventDiagrams:
		d := e.Diagrams
		if d == nil {
			d = []diagram.Diagram{}
		}
		return json.Marshal(map[string][]diagram.Diagram{"diagrams": d})
	case EventWarning:
		return json.Marshal(map[string]string{"warning": e.Message})
	default:
		return json.Marshal(map[string]string{"error": e.Message})
	}
}

func chunkEvent(s string) Event { return Event{Type: EventChunk, Chunk: s} }

func diagramsEvent(d []diagram.Diagram) Event { return Event{Type: EventDiagrams, Diagrams: d} }

func warningEvent(msg string) Event { return Event{Type: EventWarning, Message: msg} }

func errorEvent() Event { return Event{Type: EventError, Message: GenericErrorMessage} }

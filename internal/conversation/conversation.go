// Package conversation persists question and answer turns per
// conversation id.
package conversation

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/zero-day-ai/cortex/internal/diagram"
)

// Turn is one question and its answer. Turns are append-only.
type Turn struct {
	UserText     string            `json:"user"`
	ResponseText string            `json:"ai"`
	Diagrams     []diagram.Diagram `json:"diagrams,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Conversation is a named, ordered list of turns.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Turns     []Turn    `json:"turns"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is a conversation without its turns, as returned by List.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	TurnCount int       `json:"turnCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists conversations. Implementations must be safe for
// concurrent use; callers serialize writes to the same id.
type Store interface {
	// Load returns the turns of id, or an empty slice if it does not exist.
	Load(ctx context.Context, id string) ([]Turn, error)

	// Get returns the full conversation. Missing ids yield ErrNotFound.
	Get(ctx context.Context, id string) (Conversation, error)

	Append(ctx context.Context, id string, turn Turn) error

	// Save replaces the conversation. A nil turns slice keeps the stored
	// turns and only updates the name.
	Save(ctx context.Context, id, name string, turns []Turn) error

	Delete(ctx context.Context, id string) error

	// List returns summaries, most recently updated first.
	List(ctx context.Context) ([]Summary, error)

	Close() error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateID rejects ids that could escape a storage directory.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// NewID returns a fresh conversation id.
func NewID() string {
	return uuid.NewString()
}

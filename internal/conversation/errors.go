package conversation

import (
	"fmt"

	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	ErrCodeNotFound    types.ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeInvalidID   types.ErrorCode = "CONVERSATION_INVALID_ID"
	ErrCodePersistence types.ErrorCode = "CONVERSATION_PERSISTENCE_FAILED"
)

var (
	ErrNotFound  = types.NewError(ErrCodeNotFound, "conversation not found")
	ErrInvalidID = types.NewError(ErrCodeInvalidID, "conversation id must match [A-Za-z0-9_-]{1,128}")
)

// PersistenceError is a failed read or write of conversation storage.
type PersistenceError struct {
	Op             string
	ConversationID string
	Err            *types.CortexError
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("conversation %s %s: %v", e.Op, e.ConversationID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func newPersistenceError(op, id string, cause error) *PersistenceError {
	return &PersistenceError{
		Op:             op,
		ConversationID: id,
		Err:            types.WrapError(ErrCodePersistence, op+" failed", cause),
	}
}

package llm

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// CompletionRequest is the provider-level request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`

	// JSONMode asks providers with native JSON output to use it.
	JSONMode bool `json:"json_mode,omitempty"`
}

// CompletionResponse is a fully buffered completion.
type CompletionResponse struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
}

// FinishReason indicates why generation stopped.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonError         FinishReason = "error"
)

// StreamChunk is one increment of a streamed completion. A chunk with a
// non-nil Error is always the last one on the channel.
type StreamChunk struct {
	Delta        StreamDelta  `json:"delta"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Error        error        `json:"-"`
}

// StreamDelta is the text added by one stream chunk.
type StreamDelta struct {
	Content string `json:"content,omitempty"`
}

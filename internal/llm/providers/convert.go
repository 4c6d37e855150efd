package providers

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/zero-day-ai/cortex/internal/llm"
)

func toSchemaMessages(messages []llm.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		result = append(result, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return result
}

// buildCallOptions maps a request onto langchaingo options. Native JSON mode
// is only requested from backends that honour it.
func buildCallOptions(kind llm.ProviderType, req llm.CompletionRequest) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 4)
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONMode && supportsJSONMode(kind) {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}

func supportsJSONMode(kind llm.ProviderType) bool {
	switch kind {
	case llm.ProviderOpenAI, llm.ProviderGroq, llm.ProviderOllama, llm.ProviderGoogle:
		return true
	default:
		return false
	}
}

func fromLangchainResponse(resp *llms.ContentResponse, model string) *llm.CompletionResponse {
	out := &llm.CompletionResponse{ID: newResponseID(), Model: model, FinishReason: llm.FinishReasonStop}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Content
	switch choice.StopReason {
	case "length", "max_tokens", "MAX_TOKENS":
		out.FinishReason = llm.FinishReasonLength
	case "content_filter", "SAFETY":
		out.FinishReason = llm.FinishReasonContentFilter
	}
	return out
}

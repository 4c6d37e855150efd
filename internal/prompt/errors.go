package prompt

import (
	"fmt"

	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	ErrCodePromptNotFound types.ErrorCode = "PROMPT_NOT_FOUND"
	ErrCodeInvalidPrompt  types.ErrorCode = "INVALID_PROMPT"
	ErrCodeTemplateRender types.ErrorCode = "TEMPLATE_RENDER_FAILED"
	ErrCodeYAMLParse      types.ErrorCode = "YAML_PARSE_FAILED"
)

// NewPromptNotFoundError reports a prompt id missing from the library.
func NewPromptNotFoundError(id string) error {
	return types.NewError(ErrCodePromptNotFound, fmt.Sprintf("prompt not found: %s", id))
}

// NewInvalidPromptError reports a prompt that fails validation.
func NewInvalidPromptError(reason string) error {
	return types.NewError(ErrCodeInvalidPrompt, fmt.Sprintf("invalid prompt: %s", reason))
}

// NewTemplateRenderError reports a template that failed to render.
func NewTemplateRenderError(id string, cause error) error {
	return types.WrapError(ErrCodeTemplateRender, fmt.Sprintf("failed to render template '%s'", id), cause)
}

// NewYAMLParseError reports a prompt file that is not valid YAML.
func NewYAMLParseError(source string, cause error) error {
	return types.WrapError(ErrCodeYAMLParse, fmt.Sprintf("failed to parse prompts from %s", source), cause)
}

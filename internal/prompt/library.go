// Package prompt owns the text the models see: a YAML library of system
// and leg prompts, and the assembler that builds the bounded final prompt.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

// Prompt ids in the built-in library.
const (
	AnswerSystemID    = "answer.system"
	ReasoningSystemID = "reasoning.system"
	ReasoningUserID   = "reasoning.user"
)

//go:embed prompts.yaml
var builtinPrompts []byte

// Prompt is one library entry.
type Prompt struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description,omitempty"`
	Template    string `yaml:"template"`
}

// Validate checks that a prompt has an id and a non-empty template.
func (p Prompt) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return NewInvalidPromptError("id is required")
	}
	if strings.TrimSpace(p.Template) == "" {
		return NewInvalidPromptError(fmt.Sprintf("prompt %q has an empty template", p.ID))
	}
	return nil
}

type promptFile struct {
	Prompts []Prompt `yaml:"prompts"`
}

// Library holds compiled prompt templates. It is immutable after
// construction and safe for concurrent use.
type Library struct {
	templates map[string]*template.Template
}

// DefaultLibrary compiles the embedded prompts.
func DefaultLibrary() (*Library, error) {
	return ParseLibrary("builtin", builtinPrompts)
}

// LoadLibrary reads a prompts file and overlays it on the built-in
// library, so a file only needs the prompts it changes.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewYAMLParseError(path, fmt.Errorf("failed to read file: %w", err))
	}
	base, err := DefaultLibrary()
	if err != nil {
		return nil, err
	}
	overlay, err := ParseLibrary(path, data)
	if err != nil {
		return nil, err
	}
	for id, tmpl := range overlay.templates {
		base.templates[id] = tmpl
	}
	return base, nil
}

// ParseLibrary compiles every prompt in a YAML document.
func ParseLibrary(source string, data []byte) (*Library, error) {
	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, NewYAMLParseError(source, err)
	}

	lib := &Library{templates: make(map[string]*template.Template, len(file.Prompts))}
	for i, p := range file.Prompts {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s: prompt at index %d: %w", source, i, err)
		}
		tmpl, err := template.New(p.ID).Funcs(funcMap()).Option("missingkey=error").Parse(p.Template)
		if err != nil {
			return nil, NewInvalidPromptError(fmt.Sprintf("prompt %q: %v", p.ID, err))
		}
		lib.templates[p.ID] = tmpl
	}
	return lib, nil
}

// IDs lists the prompts in the library, sorted.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.templates))
	for id := range l.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Render executes the prompt with the given data.
func (l *Library) Render(id string, data any) (string, error) {
	tmpl, ok := l.templates[id]
	if !ok {
		return "", NewPromptNotFoundError(id)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewTemplateRenderError(id, err)
	}
	return buf.String(), nil
}

// LegData is the template data for the reasoning prompts.
type LegData struct {
	Question       string
	ReasoningTypes []planning.ReasoningType
	Knowledge      retrieval.Knowledge
}

// LegPrompt renders the system and user prompts for one sub-question.
func (l *Library) LegPrompt(question string, reasoningTypes []planning.ReasoningType, k retrieval.Knowledge) (string, string, error) {
	data := LegData{Question: question, ReasoningTypes: reasoningTypes, Knowledge: k}
	system, err := l.Render(ReasoningSystemID, data)
	if err != nil {
		return "", "", err
	}
	user, err := l.Render(ReasoningUserID, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

// AnswerSystemPrompt renders the system prompt for the final answer.
func (l *Library) AnswerSystemPrompt() (string, error) {
	return l.Render(AnswerSystemID, nil)
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"reasoning": reasoningList,
		"join":      strings.Join,
		"events": func(items []retrieval.KnowledgeItem) string {
			var sb strings.Builder
			retrieval.WriteEvents(&sb, items)
			return sb.String()
		},
		"claims": func(items []retrieval.KnowledgeItem) string {
			var sb strings.Builder
			retrieval.WriteClaims(&sb, items)
			return sb.String()
		},
		"conceptMap": func(rels []retrieval.ConceptRelationship) string {
			var sb strings.Builder
			retrieval.WriteConceptMap(&sb, rels)
			return sb.String()
		},
	}
}

// reasoningList renders reasoning types as "deductive, inductive".
func reasoningList(rts []planning.ReasoningType) string {
	if len(rts) == 0 {
		return "careful"
	}
	names := make([]string, len(rts))
	for i, rt := range rts {
		names[i] = string(rt)
	}
	return strings.Join(names, ", ")
}

var _ reasoning.PromptRenderer = (*Library)(nil)

package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/diagram"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

const (
	truncationMarker = "...[truncated]"

	noReferencesNote = "No specialized references matched this question. Answer from the general knowledge below.\n\n"
)

// AssemblerConfig bounds the final prompt.
type AssemblerConfig struct {
	// MaxChars is a soft budget: the query tail is never cut, and the
	// truncation marker may push the prompt slightly past it.
	MaxChars int `mapstructure:"max_chars" yaml:"max_chars" validate:"gte=1000"`
}

// DefaultAssemblerConfig returns the default prompt size bound.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{MaxChars: 100000}
}

// Assembler builds the final prompt from everything a turn gathered.
type Assembler struct {
	cfg AssemblerConfig
}

// NewAssembler creates an Assembler bounded by cfg.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultAssemblerConfig().MaxChars
	}
	return &Assembler{cfg: cfg}
}

// Assemble renders sections in a fixed order: knowledge, chain-of-thought
// answers, conversation history, then the query. When the result exceeds
// MaxChars, history turns are dropped oldest first; once history is gone
// the knowledge block is cut. It also returns the diagrams of all
// sub-results, in sub-question order.
func (a *Assembler) Assemble(query string, plan planning.QueryPlan, k retrieval.Knowledge, subResults []reasoning.SubQuestionResult, history []conversation.Turn) (string, []diagram.Diagram) {
	knowledge := knowledgeBlock(plan, k, subResults)
	tail := fmt.Sprintf("User: %s\n\nAI:", query)

	turns := history
	for len(turns) > 0 && len(knowledge)+len(historyBlock(turns))+len(tail) > a.cfg.MaxChars {
		turns = turns[1:]
	}
	hist := historyBlock(turns)

	if over := len(knowledge) + len(hist) + len(tail) - a.cfg.MaxChars; over > 0 {
		keep := max(len(knowledge)-over, 0)
		knowledge = cutUTF8(knowledge, keep) + truncationMarker + "\n\n"
	}

	lists := make([][]diagram.Diagram, len(subResults))
	for i, r := range subResults {
		lists[i] = r.Diagrams
	}
	return knowledge + hist + tail, diagram.Flatten(lists...)
}

func knowledgeBlock(plan planning.QueryPlan, k retrieval.Knowledge, subResults []reasoning.SubQuestionResult) string {
	var sb strings.Builder

	sb.WriteString("# Information From Your Mind\n\n")

	sb.WriteString("## Concept Map\n\n")
	retrieval.WriteConceptMap(&sb, k.Relationships)

	sb.WriteString("\n## Emotional Context\n")
	if emotions := retrieval.Emotions(k.Events); len(emotions) > 0 {
		sb.WriteString(strings.Join(emotions, ", ") + ".\n")
	} else {
		sb.WriteString("No emotional context recorded.\n")
	}

	sb.WriteString("\n## Temporal Context\n")
	writeTemporal(&sb, plan.TimeReference, k.Events)

	sb.WriteString("\n## Memory\n")
	retrieval.WriteEvents(&sb, k.Events)

	sb.WriteString("## Ideas\n")
	retrieval.WriteClaims(&sb, k.Claims)

	if plan.IsSpecializedDomain {
		sb.WriteString("## Specialized References\n\n")
		if len(k.References) == 0 {
			sb.WriteString(noReferencesNote)
		} else {
			retrieval.WriteReferences(&sb, k.References)
		}
	}

	if len(k.Chunks) > 0 {
		sb.WriteString("## Knowledge From Documents\n\n")
		retrieval.WriteChunks(&sb, k.Chunks)
	}

	sb.WriteString("# Chain-of-Thought Reasoning\n")
	for _, r := range subResults {
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", r.Question, strings.TrimSpace(r.AnswerText))
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeTemporal(sb *strings.Builder, dr retrieval.DateRange, events []retrieval.KnowledgeItem) {
	if dr != retrieval.DateRangeNone {
		fmt.Fprintf(sb, "The question concerns %s events.\n", dr)
	}
	if earliest, latest, ok := retrieval.DateSpan(events); ok {
		fmt.Fprintf(sb, "Remembered events span %s to %s.\n", earliest, latest)
	} else if dr == retrieval.DateRangeNone {
		sb.WriteString("No dated events.\n")
	}
}

func historyBlock(turns []conversation.Turn) string {
	var sb strings.Builder
	sb.WriteString("# Conversation History\n")
	for _, t := range turns {
		fmt.Fprintf(&sb, "User: %s\nAI: %s\n", t.UserText, t.ResponseText)
	}
	sb.WriteString("\n")
	return sb.String()
}

// cutUTF8 returns at most n bytes of s without splitting a rune.
func cutUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

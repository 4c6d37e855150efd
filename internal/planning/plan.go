// Package planning turns a free-text question into a retrieval plan: the
// entities and concepts it mentions, its time horizon, a handful of
// sub-questions for chain-of-thought reasoning, and a retrieval budget.
//
// Planning is best effort. Whatever the model returns, Extract yields a
// usable plan; on failure the plan carries the default budget and empty
// lists, and Defaulted is set.
package planning

import (
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

// MaxSubQuestions caps the sub-questions a plan may carry.
const MaxSubQuestions = 3

// MaxTerms caps the entities and the concepts a plan may carry. Concepts
// are looked up by name in one graph query.
const MaxTerms = 10

// maxBudgetPerKind bounds any single budget value the model proposes.
const maxBudgetPerKind = 100

// ReasoningType is the kind of reasoning a sub-question calls for.
type ReasoningType string

const (
	ReasoningDeductive ReasoningType = "deductive"
	ReasoningInductive ReasoningType = "inductive"
	ReasoningAbductive ReasoningType = "abductive"
	ReasoningAbstract  ReasoningType = "abstract"
)

// ParseReasoningType accepts the enum names case-insensitively.
func ParseReasoningType(s string) (ReasoningType, bool) {
	switch rt := ReasoningType(normalize(s)); rt {
	case ReasoningDeductive, ReasoningInductive, ReasoningAbductive, ReasoningAbstract:
		return rt, true
	default:
		return "", false
	}
}

// SubQuestion is one step of the chain of thought.
type SubQuestion struct {
	Text           string          `json:"question"`
	ReasoningTypes []ReasoningType `json:"reasoningTypes"`
}

// RetrievalBudget is how many items of each kind to fetch for the primary
// query. All values are non-negative.
type RetrievalBudget struct {
	Events        int `json:"events"`
	Claims        int `json:"claims"`
	Chunks        int `json:"chunks"`
	Relationships int `json:"relationships"`
}

// DefaultBudget is used whenever the model does not propose one.
func DefaultBudget() RetrievalBudget {
	return RetrievalBudget{Events: 27, Claims: 27, Chunks: 3, Relationships: 7}
}

// QueryPlan is the planner's view of a question.
type QueryPlan struct {
	Entities            []string            `json:"entities"`
	Concepts            []string            `json:"concepts"`
	TimeReference       retrieval.DateRange `json:"timeReference"`
	IsSpecializedDomain bool                `json:"isSpecializedDomain"`
	SubQuestions        []SubQuestion       `json:"subQuestions"`
	Budget              RetrievalBudget     `json:"budget"`

	// Defaulted is set when extraction failed and defaults were used.
	Defaulted bool `json:"defaulted"`
}

// DefaultPlan is the plan used when extraction fails. Keyword heuristics
// over the raw query still apply.
func DefaultPlan(query string) QueryPlan {
	return QueryPlan{
		Entities:            []string{},
		Concepts:            []string{},
		TimeReference:       DetectDateRange(query),
		IsSpecializedDomain: mentionsLegalDomain(query),
		SubQuestions:        []SubQuestion{},
		Budget:              DefaultBudget(),
		Defaulted:           true,
	}
}

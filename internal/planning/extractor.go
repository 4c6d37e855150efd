package planning

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

const systemPrompt = `You are an AI specialized in chain-of-thought reasoning.
You extract key entities, concepts, and time references from the query.
You break down queries into smaller steps and questions covering types of reasoning (deductive, inductive, abductive, or abstract).
You decide whether the query concerns a specialized domain such as law or regulation.
Be precise and concise in your extractions.`

const userPromptTemplate = `Analyze the following query: %s

Extract:
1. Entities (specific people, places, organizations)
2. Concepts (abstract ideas or themes), including those mentioned in the chain-of-thought questions
3. Time reference: one of "recent", "latest", "historic", or null

Generate up to %d chain-of-thought questions that would help respond to the query, with not more than one entity per question. For each question, list the reasoning types best suited to answer it (deductive, inductive, abductive, abstract).

Propose an ideal_mix: how many events, claims_ideas, chunks and relationships to retrieve for the query.

Respond with a single JSON object matching this schema:
%s

Return ONLY the JSON object.`

// StructuredCompleter is the slice of llm.Generator the extractor needs.
type StructuredCompleter interface {
	CompleteStructured(ctx context.Context, req llm.GenerateRequest) (string, error)
}

// LimiterConfig sizes the planning token bucket.
type LimiterConfig struct {
	PerMinute int `mapstructure:"per_minute" yaml:"per_minute" validate:"gte=1"`
	Burst     int `mapstructure:"burst" yaml:"burst" validate:"gte=1"`
}

// DefaultLimiterConfig allows five planning calls per minute.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{PerMinute: 5, Burst: 5}
}

// NewLimiter builds the token bucket shared by every turn.
func NewLimiter(cfg LimiterConfig) *rate.Limiter {
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(cfg.PerMinute)/60), cfg.Burst)
}

// Extractor builds query plans with one structured LLM call per question.
type Extractor struct {
	llm       StructuredCompleter
	limiter   *rate.Limiter
	validator *schemaValidator
	logger    *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the logger for defaulted plans.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor wires the extractor to its model and rate limiter. A nil
// limiter disables rate limiting.
func NewExtractor(completer StructuredCompleter, limiter *rate.Limiter, opts ...ExtractorOption) (*Extractor, error) {
	v, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		llm:       completer,
		limiter:   limiter,
		validator: v,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract never fails. Rate limiting delays the call; a cancelled wait, a
// failed generation or a response that does not match the schema all
// produce DefaultPlan.
func (e *Extractor) Extract(ctx context.Context, query string) QueryPlan {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.fallback(ctx, query, defaulted("rate limiter wait", err))
		}
	}

	doc, err := e.llm.CompleteStructured(ctx, llm.GenerateRequest{
		Prompt:       fmt.Sprintf(userPromptTemplate, query, MaxSubQuestions, schemaJSON()),
		SystemPrompt: systemPrompt,
		UseCase:      llm.UseCasePlanning,
	})
	if err != nil {
		return e.fallback(ctx, query, defaulted("generation failed", err))
	}

	resp, err := e.validator.decode(doc)
	if err != nil {
		return e.fallback(ctx, query, defaulted("malformed plan", err))
	}

	plan := e.normalize(query, resp)
	e.logger.DebugContext(ctx, "query plan extracted",
		"entities", len(plan.Entities),
		"concepts", len(plan.Concepts),
		"sub_questions", len(plan.SubQuestions),
		"time_reference", plan.TimeReference,
		"specialized", plan.IsSpecializedDomain)
	return plan
}

func (e *Extractor) fallback(ctx context.Context, query string, err error) QueryPlan {
	e.logger.WarnContext(ctx, "using default query plan", "error", err)
	return DefaultPlan(query)
}

func (e *Extractor) normalize(query string, resp planResponse) QueryPlan {
	// Casers carry state; one per call.
	titler := cases.Title(language.English)
	plan := QueryPlan{
		Entities:            dedupe(resp.KeyEntities, nil, MaxTerms),
		Concepts:            dedupe(resp.KeyConcepts, titler.String, MaxTerms),
		IsSpecializedDomain: resp.IsSpecializedDomain || mentionsLegalDomain(query),
		SubQuestions:        make([]SubQuestion, 0, MaxSubQuestions),
		Budget:              coerceBudget(resp.IdealMix),
	}

	plan.TimeReference = retrieval.DateRangeNone
	if resp.TimeReference != nil {
		plan.TimeReference = retrieval.ParseDateRange(*resp.TimeReference)
	}
	if plan.TimeReference == retrieval.DateRangeNone {
		plan.TimeReference = DetectDateRange(query)
	}

	for _, q := range resp.Questions {
		if len(plan.SubQuestions) == MaxSubQuestions {
			break
		}
		text := strings.TrimSpace(q.Question)
		if text == "" {
			continue
		}
		plan.SubQuestions = append(plan.SubQuestions, SubQuestion{
			Text:           text,
			ReasoningTypes: reasoningTypes(q.ReasoningTypes),
		})
	}
	return plan
}

func reasoningTypes(raw []string) []ReasoningType {
	out := make([]ReasoningType, 0, len(raw))
	seen := make(map[ReasoningType]struct{}, len(raw))
	for _, s := range raw {
		rt, ok := ParseReasoningType(s)
		if !ok {
			continue
		}
		if _, dup := seen[rt]; dup {
			continue
		}
		seen[rt] = struct{}{}
		out = append(out, rt)
	}
	return out
}

// dedupe trims, optionally transforms, and drops empty or repeated strings.
// At most limit strings are kept, in input order.
func dedupe(in []string, transform func(string) string, limit int) []string {
	out := make([]string, 0, min(len(in), limit))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if len(out) == limit {
			break
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if transform != nil {
			s = transform(s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// coerceBudget fills missing values from DefaultBudget and clamps the rest
// to [0, maxBudgetPerKind].
func coerceBudget(mix map[string]float64) RetrievalBudget {
	def := DefaultBudget()
	return RetrievalBudget{
		Events:        budgetValue(mix, "events", def.Events),
		Claims:        budgetValue(mix, "claims_ideas", def.Claims),
		Chunks:        budgetValue(mix, "chunks", def.Chunks),
		Relationships: budgetValue(mix, "relationships", def.Relationships),
	}
}

func budgetValue(mix map[string]float64, key string, def int) int {
	v, ok := mix[key]
	if !ok || math.IsNaN(v) {
		return def
	}
	switch {
	case v <= 0:
		return 0
	case v >= maxBudgetPerKind:
		return maxBudgetPerKind
	default:
		return int(math.Round(v))
	}
}

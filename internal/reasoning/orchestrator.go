// Package reasoning resolves the sub-questions of a query plan. Each
// sub-question runs as an independent leg: embed, retrieve, generate, and
// extract diagrams from the answer.
package reasoning

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/cortex/internal/diagram"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

// MaxLegs bounds fan-out per turn.
const MaxLegs = planning.MaxSubQuestions

// SubQuestionResult is the outcome of one leg.
type SubQuestionResult struct {
	Question       string                   `json:"question"`
	ReasoningTypes []planning.ReasoningType `json:"reasoningTypes"`
	AnswerText     string                   `json:"answerText"`
	Diagrams       []diagram.Diagram        `json:"diagrams"`
}

// Completer is the slice of llm.Generator a leg needs.
type Completer interface {
	Complete(ctx context.Context, req llm.GenerateRequest) (string, error)
}

// PromptRenderer builds the system and user prompts for one leg.
type PromptRenderer interface {
	LegPrompt(question string, reasoningTypes []planning.ReasoningType, k retrieval.Knowledge) (system, user string, err error)
}

// Config tunes leg retrieval.
type Config struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold" validate:"gte=0"`
}

// DefaultConfig returns the reasoning settings used when none are configured.
func DefaultConfig() Config {
	return Config{SimilarityThreshold: 0.3}
}

// Orchestrator runs chain-of-thought legs concurrently. It has no access
// to the planner, so a leg can never spawn further sub-questions.
type Orchestrator struct {
	embedder  embedder.Embedder
	retriever retrieval.Retriever
	llm       Completer
	prompts   PromptRenderer
	cfg       Config
	tracer    trace.Tracer
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger for failed sub-questions.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTracer sets the tracer for sub-question spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

// NewOrchestrator builds an Orchestrator over its collaborators.
func NewOrchestrator(emb embedder.Embedder, ret retrieval.Retriever, completer Completer, prompts PromptRenderer, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		embedder:  emb,
		retriever: ret,
		llm:       completer,
		prompts:   prompts,
		cfg:       cfg,
		tracer:    otel.Tracer("github.com/zero-day-ai/cortex/internal/reasoning"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolveAll runs one leg per sub-question and returns results in input
// order. The first failing leg cancels the rest and its error is returned
// as is; there are no partial results.
func (o *Orchestrator) ResolveAll(ctx context.Context, subQuestions []planning.SubQuestion, dr retrieval.DateRange, budget planning.RetrievalBudget) ([]SubQuestionResult, error) {
	if len(subQuestions) > MaxLegs {
		subQuestions = subQuestions[:MaxLegs]
	}
	results := make([]SubQuestionResult, len(subQuestions))
	if len(subQuestions) == 0 {
		return results, nil
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, sq := range subQuestions {
		g.Go(func() error {
			res, err := o.resolve(gctx, i, sq, dr, budget)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.WarnContext(ctx, "chain-of-thought failed", "legs", len(subQuestions), "error", err)
		return nil, err
	}

	o.logger.DebugContext(ctx, "chain-of-thought resolved",
		"legs", len(subQuestions), "duration", time.Since(start))
	return results, nil
}

func (o *Orchestrator) resolve(ctx context.Context, index int, sq planning.SubQuestion, dr retrieval.DateRange, budget planning.RetrievalBudget) (SubQuestionResult, error) {
	ctx, span := o.tracer.Start(ctx, "cortex.reasoning.leg", trace.WithAttributes(
		attribute.Int("reasoning.leg", index),
		attribute.Int("reasoning.types", len(sq.ReasoningTypes)),
	))
	defer span.End()

	res, err := o.runLeg(ctx, sq, dr, budget)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "leg failed")
		return SubQuestionResult{}, err
	}
	span.SetAttributes(attribute.Int("reasoning.diagrams", len(res.Diagrams)))
	return res, nil
}

func (o *Orchestrator) runLeg(ctx context.Context, sq planning.SubQuestion, dr retrieval.DateRange, budget planning.RetrievalBudget) (SubQuestionResult, error) {
	emb, err := o.embedder.Embed(ctx, sq.Text)
	if err != nil {
		return SubQuestionResult{}, retrieval.NewEmbeddingError(sq.Text, err)
	}

	var k retrieval.Knowledge
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		k.Events, k.Claims, err = o.retriever.RelevantEventsAndClaims(gctx, emb, retrieval.EventClaimParams{
			MaxEvents:           budget.Events,
			MaxClaims:           budget.Claims,
			SimilarityThreshold: o.cfg.SimilarityThreshold,
			DateRange:           dr,
		})
		return err
	})
	g.Go(func() error {
		var err error
		k.Relationships, err = o.retriever.RelevantConceptRelationships(gctx, emb, budget.Relationships, o.cfg.SimilarityThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return SubQuestionResult{}, err
	}

	system, user, err := o.prompts.LegPrompt(sq.Text, sq.ReasoningTypes, k)
	if err != nil {
		return SubQuestionResult{}, err
	}

	answer, err := o.llm.Complete(ctx, llm.GenerateRequest{
		Prompt:       user,
		SystemPrompt: system,
		UseCase:      llm.UseCaseDiagram,
	})
	if err != nil {
		return SubQuestionResult{}, err
	}

	return SubQuestionResult{
		Question:       sq.Text,
		ReasoningTypes: sq.ReasoningTypes,
		AnswerText:     answer,
		Diagrams:       diagram.Extract(sq.Text, answer),
	}, nil
}

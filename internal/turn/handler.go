// Package turn runs one question through the pipeline: plan, retrieve and
// reason concurrently, assemble the prompt, stream the answer, and persist
// the completed turn.
package turn

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/diagram"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/observability"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/prompt"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	ErrCodeInvalidRequest types.ErrorCode = "TURN_INVALID_REQUEST"

	statusOK       = "ok"
	statusRejected = "rejected"
	statusFailed   = "error"
	statusAborted  = "aborted"

	persistenceWarning = "Your answer was generated but could not be saved to the conversation history."
	historyWarning     = "Earlier turns of this conversation could not be loaded; the answer ignores them."
)

// Request is one question in a conversation.
type Request struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
}

// Validate checks the question and conversation id.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return types.NewError(ErrCodeInvalidRequest, "question is required")
	}
	if err := conversation.ValidateID(r.ConversationID); err != nil {
		return types.WrapError(ErrCodeInvalidRequest, "invalid conversation id", err)
	}
	return nil
}

// Planner produces a query plan. It never fails.
type Planner interface {
	Extract(ctx context.Context, query string) planning.QueryPlan
}

// Reasoner resolves chain-of-thought sub-questions.
type Reasoner interface {
	ResolveAll(ctx context.Context, subQuestions []planning.SubQuestion, dr retrieval.DateRange, budget planning.RetrievalBudget) ([]reasoning.SubQuestionResult, error)
}

// Streamer streams the final answer.
type Streamer interface {
	Stream(ctx context.Context, req llm.GenerateRequest) (<-chan llm.StreamChunk, error)
}

// SystemPrompter supplies the final answer's system prompt.
type SystemPrompter interface {
	AnswerSystemPrompt() (string, error)
}

// Config tunes the turn pipeline.
type Config struct {
	// Retries is how often a failed answer stream is restarted. Only
	// retryable failures before the first chunk qualify.
	Retries int `mapstructure:"retries" yaml:"retries" validate:"gte=0,lte=5"`

	SimilarityThreshold      float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold" validate:"gte=0"`
	ChunkSimilarityThreshold float64 `mapstructure:"chunk_similarity_threshold" yaml:"chunk_similarity_threshold" validate:"gte=0"`
	MaxReferences            int     `mapstructure:"max_references" yaml:"max_references" validate:"gte=0"`

	// UseCase routes the final answer.
	UseCase llm.UseCase `mapstructure:"use_case" yaml:"use_case"`
}

// DefaultConfig returns the turn settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Retries:                  1,
		SimilarityThreshold:      0.3,
		ChunkSimilarityThreshold: 0.35,
		MaxReferences:            10,
		UseCase:                  llm.UseCaseDefault,
	}
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Planner   Planner
	Embedder  embedder.Embedder
	Retriever retrieval.Retriever
	Reasoner  Reasoner
	Assembler *prompt.Assembler
	Prompts   SystemPrompter
	Generator Streamer
	Store     conversation.Store
}

// Handler executes turns. Turns on the same conversation run one at a
// time; different conversations run concurrently.
type Handler struct {
	deps   Deps
	cfg    Config
	locks  *keyedMutex
	tracer trace.Tracer
	meter  metric.Meter
	logger *slog.Logger

	duration metric.Float64Histogram
	turns    metric.Int64Counter
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for turn outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithTracer sets the tracer for turn spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Handler) { h.tracer = tracer }
}

// WithMeter sets the meter for turn duration and outcome metrics.
func WithMeter(meter metric.Meter) Option {
	return func(h *Handler) { h.meter = meter }
}

// NewHandler builds a Handler over deps.
func NewHandler(deps Deps, cfg Config, opts ...Option) *Handler {
	if cfg.UseCase == "" {
		cfg.UseCase = llm.UseCaseDefault
	}
	h := &Handler{
		deps:   deps,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		tracer: otel.Tracer("github.com/zero-day-ai/cortex/internal/turn"),
		meter:  otel.Meter("github.com/zero-day-ai/cortex/internal/turn"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	var err error
	h.duration, err = h.meter.Float64Histogram(observability.MetricTurnDuration,
		metric.WithDescription("Wall time of a turn from request to final event"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		h.duration = noop.Float64Histogram{}
	}
	h.turns, err = h.meter.Int64Counter(observability.MetricTurns,
		metric.WithDescription("Turns handled, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		otel.Handle(err)
		h.turns = noop.Int64Counter{}
	}
	return h
}

// Handle starts a turn and returns its event stream: chunk events, one
// diagrams event, optional warnings, then close. A hard failure yields a
// single error event instead and nothing is persisted. The caller must
// drain the channel or cancel ctx.
func (h *Handler) Handle(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		h.run(ctx, req, out)
	}()
	return out
}

func (h *Handler) run(ctx context.Context, req Request, out chan<- Event) {
	emit := func(e Event) bool {
		select {
		case out <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	start := time.Now()
	status := statusOK
	defer func() { h.recordTurn(ctx, status, time.Since(start)) }()

	logger := h.logger.With("conversation_id", req.ConversationID)
	if err := req.Validate(); err != nil {
		status = statusRejected
		logger.WarnContext(ctx, "rejected turn", "error", err)
		emit(errorEvent())
		return
	}

	ctx, span := h.tracer.Start(ctx, "cortex.turn.handle", trace.WithAttributes(
		attribute.String("turn.conversation_id", req.ConversationID),
	))
	defer span.End()

	unlock := h.locks.Lock(req.ConversationID)
	defer unlock()

	var warnings []string

	history, err := h.deps.Store.Load(ctx, req.ConversationID)
	if err != nil {
		logger.WarnContext(ctx, "failed to load conversation history", "error", err)
		warnings = append(warnings, historyWarning)
		history = nil
	}

	turn, err := h.answer(ctx, req.Question, history, emit, logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		if ctx.Err() != nil {
			status = statusAborted
			logger.InfoContext(ctx, "turn aborted", "error", err)
			return
		}
		status = statusFailed
		logger.ErrorContext(ctx, "turn failed", "error", err, "code", types.CodeOf(err))
		emit(errorEvent())
		return
	}

	if err := h.deps.Store.Append(ctx, req.ConversationID, turn); err != nil {
		logger.ErrorContext(ctx, "failed to persist turn", "error", err)
		warnings = append(warnings, persistenceWarning)
	}

	if !emit(diagramsEvent(turn.Diagrams)) {
		status = statusAborted
		return
	}
	for _, w := range warnings {
		if !emit(warningEvent(w)) {
			status = statusAborted
			return
		}
	}

	logger.InfoContext(ctx, "turn completed",
		"duration", time.Since(start),
		"answer_chars", len(turn.ResponseText),
		"diagrams", len(turn.Diagrams))
}

// answer runs the pipeline up to a fully streamed answer. The returned
// turn is complete; an aborted or failed turn returns an error.
func (h *Handler) answer(ctx context.Context, question string, history []conversation.Turn, emit func(Event) bool, logger *slog.Logger) (conversation.Turn, error) {
	// the question embedding does not depend on the plan
	var (
		plan planning.QueryPlan
		emb  []float64
	)
	pg, pctx := errgroup.WithContext(ctx)
	pg.Go(func() error {
		plan = h.deps.Planner.Extract(pctx, question)
		return nil
	})
	pg.Go(func() error {
		var err error
		if emb, err = h.deps.Embedder.Embed(pctx, question); err != nil {
			return retrieval.NewEmbeddingError(question, err)
		}
		return nil
	})
	if err := pg.Wait(); err != nil {
		return conversation.Turn{}, err
	}
	if plan.Defaulted {
		logger.WarnContext(ctx, "planning defaulted")
	}

	var (
		k          retrieval.Knowledge
		subResults []reasoning.SubQuestionResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		k, err = h.retrieve(gctx, emb, plan)
		return err
	})
	g.Go(func() error {
		var err error
		subResults, err = h.deps.Reasoner.ResolveAll(gctx, plan.SubQuestions, plan.TimeReference, plan.Budget)
		return err
	})
	if err := g.Wait(); err != nil {
		return conversation.Turn{}, err
	}

	promptText, diagrams := h.deps.Assembler.Assemble(question, plan, k, subResults, history)
	diagrams = diagram.SanitizeAll(diagrams)
	system, err := h.deps.Prompts.AnswerSystemPrompt()
	if err != nil {
		return conversation.Turn{}, err
	}

	text, err := h.streamAnswer(ctx, llm.GenerateRequest{
		Prompt:       promptText,
		SystemPrompt: system,
		UseCase:      h.cfg.UseCase,
	}, emit, logger)
	if err != nil {
		return conversation.Turn{}, err
	}
	if err := ctx.Err(); err != nil {
		return conversation.Turn{}, err
	}

	return conversation.Turn{
		UserText:     question,
		ResponseText: text,
		Diagrams:     diagrams,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// retrieve gathers the primary knowledge for the question embedding.
func (h *Handler) retrieve(ctx context.Context, emb []float64, plan planning.QueryPlan) (retrieval.Knowledge, error) {
	var (
		k       retrieval.Knowledge
		byEmbed []retrieval.ConceptRelationship
		byName  []retrieval.ConceptRelationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		k.Events, k.Claims, err = h.deps.Retriever.RelevantEventsAndClaims(gctx, emb, retrieval.EventClaimParams{
			MaxEvents:           plan.Budget.Events,
			MaxClaims:           plan.Budget.Claims,
			SimilarityThreshold: h.cfg.SimilarityThreshold,
			DateRange:           plan.TimeReference,
		})
		return err
	})
	g.Go(func() error {
		var err error
		byEmbed, err = h.deps.Retriever.RelevantConceptRelationships(gctx, emb, plan.Budget.Relationships, h.cfg.SimilarityThreshold)
		return err
	})
	g.Go(func() error {
		var err error
		byName, err = h.deps.Retriever.ConceptRelationshipsByName(gctx, plan.Concepts, plan.Budget.Relationships)
		return err
	})
	g.Go(func() error {
		var err error
		k.Chunks, err = h.deps.Retriever.RelevantChunks(gctx, emb, plan.Budget.Chunks, h.cfg.ChunkSimilarityThreshold)
		return err
	})
	if plan.IsSpecializedDomain {
		g.Go(func() error {
			var err error
			k.References, err = h.deps.Retriever.RelevantSpecializedReferences(gctx, emb, h.cfg.SimilarityThreshold, h.cfg.MaxReferences)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return retrieval.Knowledge{}, err
	}

	k.Relationships = retrieval.MergeRelationships(plan.Budget.Relationships, byName, byEmbed)
	return k, nil
}

// streamAnswer forwards answer chunks and returns the full text. A stream
// that fails before its first chunk with a retryable error is restarted
// up to cfg.Retries times.
func (h *Handler) streamAnswer(ctx context.Context, req llm.GenerateRequest, emit func(Event) bool, logger *slog.Logger) (string, error) {
	for attempt := 0; ; attempt++ {
		text, delivered, err := h.streamOnce(ctx, req, emit)
		if err == nil {
			return text, nil
		}
		if delivered > 0 || attempt >= h.cfg.Retries || !retryable(err) || ctx.Err() != nil {
			return "", err
		}
		logger.WarnContext(ctx, "retrying answer stream", "attempt", attempt+1, "error", err)
	}
}

func (h *Handler) streamOnce(ctx context.Context, req llm.GenerateRequest, emit func(Event) bool) (string, int, error) {
	ch, err := h.deps.Generator.Stream(ctx, req)
	if err != nil {
		return "", 0, err
	}

	var (
		sb        strings.Builder
		delivered int
		streamErr error
	)
	for chunk := range ch {
		if streamErr != nil {
			continue
		}
		if chunk.Error != nil {
			streamErr = chunk.Error
			continue
		}
		if chunk.Delta.Content == "" {
			continue
		}
		if !emit(chunkEvent(chunk.Delta.Content)) {
			streamErr = ctx.Err()
			continue
		}
		sb.WriteString(chunk.Delta.Content)
		delivered++
	}
	if streamErr != nil {
		return "", delivered, streamErr
	}
	return sb.String(), delivered, nil
}

func (h *Handler) recordTurn(ctx context.Context, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	h.turns.Add(context.WithoutCancel(ctx), 1, attrs)
	h.duration.Record(context.WithoutCancel(ctx), elapsed.Seconds(), attrs)
}

func retryable(err error) bool {
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Retryable()
	}
	return types.IsRetryable(err)
}

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/cortex/internal/observability"
	"github.com/zero-day-ai/cortex/internal/types"
)

// GenerateRequest is a use-case level request. Nil overrides fall back to
// the route's settings.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	UseCase      UseCase
	Temperature  *float64
	MaxTokens    *int
}

// Generator routes generation requests to providers by use case.
type Generator struct {
	providers map[string]LLMProvider
	routes    *RouteTable
	timeout   time.Duration
	tracer    trace.Tracer
	meter     metric.Meter
	errors    metric.Int64Counter
	logger    *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithTimeout bounds every generation call.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) { g.timeout = d }
}

// WithTracer sets the tracer for generation spans.
func WithTracer(t trace.Tracer) GeneratorOption {
	return func(g *Generator) { g.tracer = t }
}

// WithMeter sets the meter for the generation error counter.
func WithMeter(m metric.Meter) GeneratorOption {
	return func(g *Generator) { g.meter = m }
}

// WithLogger sets the logger for failed generations.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = l }
}

// NewGenerator checks that every routed provider is registered.
func NewGenerator(providers []LLMProvider, routes *RouteTable, opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		providers: make(map[string]LLMProvider, len(providers)),
		routes:    routes,
		timeout:   2 * time.Minute,
		tracer:    otel.Tracer("github.com/zero-day-ai/cortex/internal/llm"),
		meter:     otel.Meter("github.com/zero-day-ai/cortex/internal/llm"),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	var err error
	g.errors, err = g.meter.Int64Counter(observability.MetricGenerationErrors,
		metric.WithDescription("Failed LLM generations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation error counter: %w", err)
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	for _, name := range routes.Providers() {
		if _, ok := g.providers[name]; !ok {
			return nil, types.NewError(ErrProviderNotFound, "route references unknown provider: "+name)
		}
	}
	return g, nil
}

// Stream starts a streamed generation. Errors that occur after the call
// returns arrive as the final chunk, wrapped in a GenerationError.
// Callers must drain the channel until it is closed.
func (g *Generator) Stream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	route := g.routes.Lookup(req.UseCase)
	provider := g.providers[route.Provider]

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	ctx, span := g.tracer.Start(ctx, "cortex.llm.stream", trace.WithAttributes(
		attribute.String("llm.use_case", string(req.UseCase)),
		attribute.String("llm.provider", route.Provider),
		attribute.String("llm.model", route.Model),
		attribute.Int("llm.prompt_chars", len(req.Prompt)),
	))

	upstream, err := provider.Stream(ctx, g.buildRequest(route, req, false))
	if err != nil {
		genErr := g.wrap(ctx, req.UseCase, route, TranslateError(route.Provider, err))
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "stream start failed")
		span.End()
		cancel()
		return nil, genErr
	}

	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer cancel()
		defer span.End()

		var chars int
		for chunk := range upstream {
			if chunk.Error != nil {
				chunk.Error = g.wrap(ctx, req.UseCase, route, TranslateError(route.Provider, chunk.Error))
				span.RecordError(chunk.Error)
				span.SetStatus(codes.Error, "stream failed")
				out <- chunk
				return
			}
			chars += len(chunk.Delta.Content)
			out <- chunk
		}
		// providers close early on cancellation without an error chunk
		if err := ctx.Err(); err != nil {
			genErr := g.wrap(ctx, req.UseCase, route, TranslateError(route.Provider, err))
			span.RecordError(genErr)
			span.SetStatus(codes.Error, "stream interrupted")
			out <- StreamChunk{FinishReason: FinishReasonError, Error: genErr}
			return
		}
		span.SetAttributes(attribute.Int("llm.response_chars", chars))
	}()
	return out, nil
}

// Complete buffers a streamed generation into one string.
func (g *Generator) Complete(ctx context.Context, req GenerateRequest) (string, error) {
	ch, err := g.Stream(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			return "", chunk.Error
		}
		sb.WriteString(chunk.Delta.Content)
	}
	return sb.String(), nil
}

// CompleteStructured requests JSON output and returns the extracted JSON
// document. Validation against a schema is the caller's job.
func (g *Generator) CompleteStructured(ctx context.Context, req GenerateRequest) (string, error) {
	route := g.routes.Lookup(req.UseCase)
	provider := g.providers[route.Provider]

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "cortex.llm.complete_structured", trace.WithAttributes(
		attribute.String("llm.use_case", string(req.UseCase)),
		attribute.String("llm.provider", route.Provider),
		attribute.String("llm.model", route.Model),
	))
	defer span.End()

	resp, err := provider.Complete(ctx, g.buildRequest(route, req, true))
	if err != nil {
		genErr := g.wrap(ctx, req.UseCase, route, TranslateError(route.Provider, err))
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "completion failed")
		return "", genErr
	}

	doc, err := ExtractJSON(resp.Content)
	if err != nil {
		genErr := g.wrap(ctx, req.UseCase, route, types.WrapError(ErrResponseParseFailed, "response is not JSON", err))
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "unparseable response")
		return "", genErr
	}
	return doc, nil
}

// Health reports each registered provider.
func (g *Generator) Health(ctx context.Context) map[string]types.HealthStatus {
	out := make(map[string]types.HealthStatus, len(g.providers))
	for name, p := range g.providers {
		out[name] = p.Health(ctx)
	}
	return out
}

func (g *Generator) buildRequest(route Route, req GenerateRequest, jsonMode bool) CompletionRequest {
	msgs := make([]Message, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, NewSystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, NewUserMessage(req.Prompt))

	cr := CompletionRequest{
		Model:       route.Model,
		Messages:    msgs,
		Temperature: route.Temperature,
		MaxTokens:   route.MaxTokens,
		JSONMode:    jsonMode,
	}
	if req.Temperature != nil {
		cr.Temperature = req.Temperature
	}
	if req.MaxTokens != nil {
		cr.MaxTokens = *req.MaxTokens
	}
	return cr
}

func (g *Generator) wrap(ctx context.Context, uc UseCase, route Route, cause error) *GenerationError {
	g.logger.DebugContext(ctx, "generation failed",
		"use_case", uc, "provider", route.Provider, "model", route.Model, "error", fmt.Sprint(cause))
	g.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("use_case", string(uc)),
		attribute.String("provider", route.Provider),
		attribute.String("code", string(types.CodeOf(cause))),
	))
	return &GenerationError{UseCase: uc, Provider: route.Provider, Model: route.Model, Cause: cause}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/config"
	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/llm/providers"
	"github.com/zero-day-ai/cortex/internal/observability"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/prompt"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
	"github.com/zero-day-ai/cortex/internal/server"
	"github.com/zero-day-ai/cortex/internal/turn"
	"github.com/zero-day-ai/cortex/internal/types"
)

const closeTimeout = 10 * time.Second

// app holds the wired pipeline for commands that answer questions.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	tracing   *sdktrace.TracerProvider
	metrics   *sdkmetric.MeterProvider
	graph     graph.Client
	embedder  embedder.Embedder
	providers []llm.LLMProvider
	store     conversation.Store
	handler   *turn.Handler

	closers []func(context.Context) error
}

// newApp connects every backend named in cfg. On failure everything opened
// so far is closed again.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.tracing, err = observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "failed to initialize tracing", err)
	}
	a.closers = append(a.closers, func(ctx context.Context) error {
		return observability.ShutdownTracing(ctx, a.tracing)
	})
	tracer := a.tracing.Tracer("github.com/zero-day-ai/cortex")

	a.metrics, err = observability.InitMetrics(ctx, cfg.Metrics)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "failed to initialize metrics", err)
	}
	a.closers = append(a.closers, func(ctx context.Context) error {
		return observability.ShutdownMetrics(ctx, a.metrics)
	})
	meter := a.metrics.Meter("github.com/zero-day-ai/cortex")

	a.providers, err = providers.NewProviders(ctx, cfg.LLM.Providers)
	if err != nil {
		return nil, internal.WrapError(internal.ExitProviderError, "failed to initialize LLM providers", err)
	}
	routes, err := llm.NewRouteTable(cfg.LLM.Routes)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "invalid LLM routes", err)
	}
	gen, err := llm.NewGenerator(a.providers, routes,
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithLogger(logger.With("component", "llm")),
		llm.WithTracer(tracer),
		llm.WithMeter(meter),
	)
	if err != nil {
		return nil, internal.WrapError(internal.ExitProviderError, "failed to build generator", err)
	}

	a.embedder, err = newEmbedder(ctx, cfg, logger, &a.closers)
	if err != nil {
		return nil, err
	}

	a.graph, err = connectGraph(ctx, cfg.Neo4j)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.graph.Close)

	lib, err := loadPrompts(cfg.Prompt)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "failed to load prompt library", err)
	}

	extractor, err := planning.NewExtractor(gen, planning.NewLimiter(cfg.Planning),
		planning.WithLogger(logger.With("component", "planning")))
	if err != nil {
		return nil, err
	}

	engine := retrieval.NewEngine(a.graph, cfg.Retrieval, retrieval.WithLogger(logger.With("component", "retrieval")))
	retriever := retrieval.NewTracedRetriever(engine, tracer, retrieval.WithMeter(meter))

	orchestrator := reasoning.NewOrchestrator(a.embedder, retriever, gen, lib, cfg.Reasoning,
		reasoning.WithLogger(logger.With("component", "reasoning")),
		reasoning.WithTracer(tracer),
	)

	a.store, err = conversation.Open(cfg.Conversation)
	if err != nil {
		return nil, internal.WrapError(internal.ExitStorageError, "failed to open conversation store", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	a.handler = turn.NewHandler(turn.Deps{
		Planner:   extractor,
		Embedder:  a.embedder,
		Retriever: retriever,
		Reasoner:  orchestrator,
		Assembler: prompt.NewAssembler(prompt.AssemblerConfig{MaxChars: cfg.Prompt.MaxChars}),
		Prompts:   lib,
		Generator: gen,
		Store:     a.store,
	}, cfg.Turn,
		turn.WithLogger(logger.With("component", "turn")),
		turn.WithTracer(tracer),
		turn.WithMeter(meter),
	)

	logger.Debug("pipeline ready",
		"providers", len(a.providers),
		"embedding_model", a.embedder.Model(),
		"conversation_backend", cfg.Conversation.Backend,
	)
	return a, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger, closers *[]func(context.Context) error) (embedder.Embedder, error) {
	inner, err := embedder.New(cfg.Embedder)
	if err != nil {
		return nil, internal.WrapError(internal.ExitProviderError, "failed to initialize embedder", err)
	}
	store, closeStore, err := embedder.NewStore(ctx, cfg.Cache, logger)
	if err != nil {
		return nil, internal.WrapError(internal.ExitStorageError, "failed to open embedding cache", err)
	}
	*closers = append(*closers, func(context.Context) error { return closeStore() })

	return embedder.NewCachedEmbedder(inner, store, cfg.Cache.TTL,
		embedder.WithCacheLogger(logger.With("component", "embedder"))), nil
}

func connectGraph(ctx context.Context, cfg graph.Config) (graph.Client, error) {
	client, err := graph.NewNeo4jClient(cfg)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "invalid neo4j configuration", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, internal.WrapError(internal.ExitGraphError, "failed to connect to neo4j", err)
	}
	return client, nil
}

func loadPrompts(cfg config.PromptConfig) (*prompt.Library, error) {
	if cfg.Library != "" {
		return prompt.LoadLibrary(cfg.Library)
	}
	return prompt.DefaultLibrary()
}

// healthChecks names one check per backend the pipeline depends on.
func (a *app) healthChecks() map[string]server.HealthCheck {
	checks := map[string]server.HealthCheck{
		"graph":    a.graph.Health,
		"embedder": a.embedder.Health,
	}
	for _, p := range a.providers {
		checks["llm:"+p.Name()] = p.Health
	}
	return checks
}

// checkHealth runs every check and aggregates the results.
func (a *app) checkHealth(ctx context.Context) (types.HealthStatus, map[string]types.HealthStatus) {
	results := make(map[string]types.HealthStatus)
	for name, check := range a.healthChecks() {
		results[name] = check(ctx)
	}
	return types.Aggregate(results), results
}

// Close releases backends in reverse order of opening.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openStore opens the conversation store without the rest of the pipeline.
// Shell completion runs before loadConfig, so the config is read here when
// it has not been loaded yet.
func openStore() (conversation.Store, error) {
	c := cfg
	if c == nil {
		var err error
		if c, err = readConfig(globalFlags); err != nil {
			return nil, err
		}
	}
	store, err := conversation.Open(c.Conversation)
	if err != nil {
		return nil, internal.WrapError(internal.ExitStorageError, "failed to open conversation store", err)
	}
	return store, nil
}

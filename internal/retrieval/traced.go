package retrieval

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/cortex/internal/observability"
	"github.com/zero-day-ai/cortex/internal/types"
)

// TracedRetriever wraps a Retriever with one span per operation, named
// cortex.retrieval.<operation>, and counts failed operations.
type TracedRetriever struct {
	inner  Retriever
	tracer trace.Tracer
	meter  metric.Meter
	errors metric.Int64Counter
}

// TracedOption configures a TracedRetriever.
type TracedOption func(*TracedRetriever)

// WithMeter sets the meter for the retrieval error counter. The global
// meter provider is used otherwise.
func WithMeter(meter metric.Meter) TracedOption {
	return func(t *TracedRetriever) { t.meter = meter }
}

// NewTracedRetriever wraps inner with spans from tracer.
func NewTracedRetriever(inner Retriever, tracer trace.Tracer, opts ...TracedOption) *TracedRetriever {
	t := &TracedRetriever{
		inner:  inner,
		tracer: tracer,
		meter:  otel.Meter("github.com/zero-day-ai/cortex/internal/retrieval"),
	}
	for _, opt := range opts {
		opt(t)
	}

	counter, err := t.meter.Int64Counter(observability.MetricRetrievalErrors,
		metric.WithDescription("Failed knowledge graph retrieval operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		otel.Handle(err)
		counter = noop.Int64Counter{}
	}
	t.errors = counter
	return t
}

func (t *TracedRetriever) RelevantEventsAndClaims(ctx context.Context, embedding []float64, p EventClaimParams) ([]KnowledgeItem, []KnowledgeItem, error) {
	ctx, span := t.tracer.Start(ctx, "cortex.retrieval.events_and_claims", trace.WithAttributes(
		attribute.Int("retrieval.max_events", p.MaxEvents),
		attribute.Int("retrieval.max_claims", p.MaxClaims),
		attribute.Float64("retrieval.threshold", p.SimilarityThreshold),
		attribute.String("retrieval.date_range", string(p.DateRange)),
	))
	defer span.End()

	events, claims, err := t.inner.RelevantEventsAndClaims(ctx, embedding, p)
	if err != nil {
		t.recordError(ctx, span, "events_and_claims", err)
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.events", len(events)), attribute.Int("retrieval.claims", len(claims)))
	return events, claims, nil
}

func (t *TracedRetriever) RelevantConceptRelationships(ctx context.Context, embedding []float64, maxItems int, threshold float64) ([]ConceptRelationship, error) {
	ctx, span := t.tracer.Start(ctx, "cortex.retrieval.concept_relationships", trace.WithAttributes(
		attribute.Int("retrieval.max_items", maxItems),
		attribute.Float64("retrieval.threshold", threshold),
	))
	defer span.End()

	rels, err := t.inner.RelevantConceptRelationships(ctx, embedding, maxItems, threshold)
	if err != nil {
		t.recordError(ctx, span, "concept_relationships", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(rels)))
	return rels, nil
}

func (t *TracedRetriever) ConceptRelationshipsByName(ctx context.Context, names []string, maxItems int) ([]ConceptRelationship, error) {
	ctx, span := t.tracer.Start(ctx, "cortex.retrieval.concepts_by_name", trace.WithAttributes(
		attribute.Int("retrieval.names", len(names)),
		attribute.Int("retrieval.max_items", maxItems),
	))
	defer span.End()

	rels, err := t.inner.ConceptRelationshipsByName(ctx, names, maxItems)
	if err != nil {
		t.recordError(ctx, span, "concepts_by_name", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(rels)))
	return rels, nil
}

func (t *TracedRetriever) RelevantSpecializedReferences(ctx context.Context, embedding []float64, threshold float64, maxItems int) ([]KnowledgeItem, error) {
	ctx, span := t.tracer.Start(ctx, "cortex.retrieval.specialized_references", trace.WithAttributes(
		attribute.Int("retrieval.max_items", maxItems),
		attribute.Float64("retrieval.threshold", threshold),
	))
	defer span.End()

	items, err := t.inner.RelevantSpecializedReferences(ctx, embedding, threshold, maxItems)
	if err != nil {
		t.recordError(ctx, span, "specialized_references", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(items)))
	return items, nil
}

func (t *TracedRetriever) RelevantChunks(ctx context.Context, embedding []float64, maxChunks int, threshold float64) ([]KnowledgeItem, error) {
	ctx, span := t.tracer.Start(ctx, "cortex.retrieval.chunks", trace.WithAttributes(
		attribute.Int("retrieval.max_items", maxChunks),
		attribute.Float64("retrieval.threshold", threshold),
	))
	defer span.End()

	items, err := t.inner.RelevantChunks(ctx, embedding, maxChunks, threshold)
	if err != nil {
		t.recordError(ctx, span, "chunks", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(items)))
	return items, nil
}

func (t *TracedRetriever) recordError(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	t.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("code", string(types.CodeOf(err))),
	))
}

var _ Retriever = (*TracedRetriever)(nil)

package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/types"
)

const (
	matchEvents     = "node.start_date"
	matchClaims     = "node.confidence"
	matchConcepts   = "MATCH (concept)-[r]-(other:Concept)"
	matchByName     = "UNWIND $names"
	matchReferences = "UNWIND $indexes"
	matchChunks     = "node.text AS content"
)

var (
	fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	queryVec = []float64{0.1, 0.2, 0.3}
)

func newTestEngine(client graph.Client) *Engine {
	return NewEngine(client, DefaultConfig(), WithClock(func() time.Time { return fixedNow }))
}

func event(name string, similarity float64, date time.Time) map[string]any {
	return map[string]any{
		"name":        name,
		"description": name + " happened",
		"start_date":  date,
		"emotion":     "hope",
		"similarity":  similarity,
	}
}

func TestEngine_ThresholdAboveOneReturnsNothing(t *testing.T) {
	client := graph.NewMockClient().
		OnQuery(matchEvents, event("e", 0.9, fixedNow)).
		OnQuery(matchClaims, map[string]any{"content": "c", "similarity": 0.9}).
		OnQuery(matchConcepts, map[string]any{"source": "A", "relation_type": "R", "target": "B", "similarity": 0.9}).
		OnQuery(matchReferences, map[string]any{"label": "Provision", "content": "p", "similarity": 0.9}).
		OnQuery(matchChunks, map[string]any{"content": "k", "similarity": 0.9})
	e := newTestEngine(client)
	ctx := context.Background()

	events, claims, err := e.RelevantEventsAndClaims(ctx, queryVec, EventClaimParams{MaxEvents: 5, MaxClaims: 5, SimilarityThreshold: 1.01})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, claims)

	rels, err := e.RelevantConceptRelationships(ctx, queryVec, 5, 1.01)
	require.NoError(t, err)
	assert.Empty(t, rels)

	refs, err := e.RelevantSpecializedReferences(ctx, queryVec, 1.01, 5)
	require.NoError(t, err)
	assert.Empty(t, refs)

	chunks, err := e.RelevantChunks(ctx, queryVec, 5, 1.01)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.Empty(t, client.Calls())
}

func TestEngine_EventsRankByCombinedScore(t *testing.T) {
	old := fixedNow.AddDate(-80, 0, 0)
	fresh := fixedNow.AddDate(0, -1, 0)

	tests := []struct {
		name      string
		dateRange DateRange
		first     string
	}{
		{"historic favours old", DateRangeHistoric, "old"},
		{"recent favours new", DateRangeRecent, "fresh"},
		{"latest favours new", DateRangeLatest, "fresh"},
		{"default favours new", DateRangeNone, "fresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := graph.NewMockClient().OnQuery(matchEvents,
				event("old", 0.8, old),
				event("fresh", 0.8, fresh),
			)
			events, _, err := newTestEngine(client).RelevantEventsAndClaims(context.Background(), queryVec,
				EventClaimParams{MaxEvents: 2, MaxClaims: 0, SimilarityThreshold: 0.3, DateRange: tt.dateRange})
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, tt.first, events[0].Name)

			for _, ev := range events {
				require.NotNil(t, ev.TemporalRelevance)
				require.NotNil(t, ev.CombinedScore)
				assert.InDelta(t, 0.7*ev.Similarity+0.3*(*ev.TemporalRelevance), *ev.CombinedScore, 1e-12)
				assert.Equal(t, KindEvent, ev.Kind)
			}

			calls := client.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, string(tt.dateRange), calls[0].Params["date_range"])
		})
	}
}

func TestEngine_EventsFilterAndTruncate(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchEvents,
		event("a", 0.9, fixedNow),
		event("b", 0.29, fixedNow),
		event("c", 0.5, fixedNow),
		event("d", 0.6, fixedNow),
	)
	events, claims, err := newTestEngine(client).RelevantEventsAndClaims(context.Background(), queryVec,
		EventClaimParams{MaxEvents: 2, MaxClaims: 0, SimilarityThreshold: 0.3})
	require.NoError(t, err)
	assert.Empty(t, claims)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Name)
	assert.Equal(t, "d", events[1].Name)
	assert.Equal(t, "hope", events[0].Emotion)
}

func TestEngine_ClaimsRankBySimilarity(t *testing.T) {
	conf := 0.8
	client := graph.NewMockClient().OnQuery(matchClaims,
		map[string]any{"content": "low", "similarity": 0.4},
		map[string]any{"content": "high", "source": "Meditations", "confidence": conf, "similarity": 0.95},
		map[string]any{"content": "mid", "similarity": 0.6},
	)
	_, claims, err := newTestEngine(client).RelevantEventsAndClaims(context.Background(), queryVec,
		EventClaimParams{MaxEvents: 0, MaxClaims: 2, SimilarityThreshold: 0.3})
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, "high", claims[0].Content)
	assert.Equal(t, "Meditations", claims[0].Source)
	require.NotNil(t, claims[0].Confidence)
	assert.Nil(t, claims[0].CombinedScore)
	assert.Equal(t, "mid", claims[1].Content)
}

func TestEngine_ConceptRelationshipsOrderedAndCapped(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchConcepts,
		map[string]any{"source": "Virtue", "relation_type": "LEADS_TO", "target": "Happiness", "similarity": 0.7},
		map[string]any{"source": "Justice", "relation_type": "PART_OF", "target": "Virtue", "similarity": 0.9},
		map[string]any{"source": "Courage", "relation_type": "PART_OF", "target": "Virtue", "similarity": 0.7},
		map[string]any{"source": "Noise", "relation_type": "X", "target": "Y", "similarity": 0.1},
	)
	rels, err := newTestEngine(client).RelevantConceptRelationships(context.Background(), queryVec, 3, 0.3)
	require.NoError(t, err)
	require.Len(t, rels, 3)
	assert.Equal(t, "Justice", rels[0].Source)
	assert.Equal(t, "Courage", rels[1].Source)
	assert.Equal(t, "Virtue", rels[2].Source)
	assert.Equal(t, 3, client.Calls()[0].Params["limit"])
}

func TestEngine_ConceptRelationshipsByName(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchByName,
		map[string]any{"source": "Stoicism", "relation_type": "INFLUENCED", "target": "Christianity"},
	)
	e := newTestEngine(client)

	rels, err := e.ConceptRelationshipsByName(context.Background(), []string{"Stoicism"}, 7)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 1.0, rels[0].Similarity)

	none, err := e.ConceptRelationshipsByName(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Len(t, client.Calls(), 1)
}

func TestEngine_SpecializedReferencesDedupeAndExclude(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchReferences,
		map[string]any{"label": "Provision", "name": "12", "content": "Every person has the right to vote.", "status": "active", "similarity": 0.8},
		map[string]any{"label": "Definition", "name": "", "content": "Every person has the right to vote.", "similarity": 0.9},
		map[string]any{"label": "Scope", "content": "Applies to citizens.", "status": "Superseded", "similarity": 0.95},
		map[string]any{"label": "Condition", "content": "Must be 18.", "status": "withdrawn", "similarity": 0.85},
		map[string]any{"label": "Consequence", "content": "Invalid ballots are void.", "similarity": 0.6},
	)
	refs, err := newTestEngine(client).RelevantSpecializedReferences(context.Background(), queryVec, 0.3, 10)
	require.NoError(t, err)

	require.Len(t, refs, 2)
	assert.Equal(t, "Every person has the right to vote.", refs[0].Content)
	assert.InDelta(t, 0.9, refs[0].Similarity, 1e-12)
	assert.Equal(t, "Definition", refs[0].Label)
	assert.Equal(t, KindLegalReference, refs[0].Kind)
	assert.Equal(t, "Invalid ballots are void.", refs[1].Content)

	params := client.Calls()[0].Params
	assert.Equal(t, []string{"withdrawn", "superseded", "repealed"}, params["excluded_statuses"])
	assert.Len(t, params["indexes"], 5)
}

func TestEngine_Chunks(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchChunks,
		map[string]any{"content": "passage", "source": "The Republic", "similarity": 0.5},
	)
	chunks, err := newTestEngine(client).RelevantChunks(context.Background(), queryVec, 3, 0.35)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, KindChunk, chunks[0].Kind)
	assert.Equal(t, "The Republic", chunks[0].Source)
}

func TestEngine_QueryFailureIsRetrievalError(t *testing.T) {
	client := graph.NewMockClient().OnQueryError(matchClaims, errors.New("syntax error"))

	_, _, err := newTestEngine(client).RelevantEventsAndClaims(context.Background(), queryVec,
		EventClaimParams{MaxEvents: 3, MaxClaims: 3, SimilarityThreshold: 0.3})
	require.Error(t, err)

	var rerr *RetrievalError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "claims", rerr.Op)
	assert.Equal(t, ErrCodeQueryFailed, rerr.Code())
}

func TestEngine_QueryTimeout(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchChunks).WithDelay(time.Second)
	cfg := DefaultConfig()
	cfg.QueryTimeout = 10 * time.Millisecond
	e := NewEngine(client, cfg)

	_, err := e.RelevantChunks(context.Background(), queryVec, 3, 0.3)
	require.Error(t, err)
	assert.Equal(t, ErrCodeTimeout, types.CodeOf(err))
	assert.True(t, types.IsRetryable(err))
}

func TestEngine_ResultShapeMismatch(t *testing.T) {
	client := graph.NewMockClient().OnQuery(matchChunks, map[string]any{"content": 42, "similarity": 0.9})

	_, err := newTestEngine(client).RelevantChunks(context.Background(), queryVec, 3, 0.3)
	require.Error(t, err)
	assert.Equal(t, ErrCodeResultParsing, types.CodeOf(err))
}

func TestEngine_EmptyEmbeddingRejected(t *testing.T) {
	e := newTestEngine(graph.NewMockClient())
	_, err := e.RelevantChunks(context.Background(), nil, 3, 0.3)
	assert.Equal(t, ErrCodeInvalidInput, types.CodeOf(err))
}

func TestEngine_CandidatePool(t *testing.T) {
	e := newTestEngine(graph.NewMockClient())
	assert.Equal(t, 50, e.candidates(3))
	assert.Equal(t, 108, e.candidates(27))
}

func TestMergeRelationships(t *testing.T) {
	a := []ConceptRelationship{{Source: "A", RelationType: "R", Target: "B", Similarity: 1}}
	b := []ConceptRelationship{
		{Source: "A", RelationType: "R", Target: "B", Similarity: 0.5},
		{Source: "C", RelationType: "R", Target: "D", Similarity: 0.4},
		{Source: "E", RelationType: "R", Target: "F", Similarity: 0.3},
	}
	got := MergeRelationships(2, a, b)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Similarity)
	assert.Equal(t, "C", got[1].Source)
}

func TestTracedRetriever_RecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	client := graph.NewMockClient().OnQueryError(matchChunks, errors.New("down"))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	traced := NewTracedRetriever(newTestEngine(client), tp.Tracer("test"), WithMeter(mp.Meter("test")))

	_, err := traced.RelevantChunks(context.Background(), queryVec, 2, 0.3)
	require.Error(t, err)
	_, err = traced.RelevantConceptRelationships(context.Background(), queryVec, 2, 0.3)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "cortex.retrieval.chunks", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	assert.Equal(t, "cortex.retrieval.concept_relationships", spans[1].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)
	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "cortex.retrieval.errors", m.Name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	op, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("operation"))
	assert.Equal(t, "chunks", op.AsString())
	code, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("code"))
	assert.Equal(t, string(ErrCodeQueryFailed), code.AsString())
}

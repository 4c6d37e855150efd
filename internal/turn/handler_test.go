package turn

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/diagram"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/graph"
	"github.com/zero-day-ai/cortex/internal/llm"
	"github.com/zero-day-ai/cortex/internal/llm/providers"
	"github.com/zero-day-ai/cortex/internal/planning"
	"github.com/zero-day-ai/cortex/internal/prompt"
	"github.com/zero-day-ai/cortex/internal/reasoning"
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

const planJSON = `{
  "key_entities": ["Seneca"],
  "key_concepts": ["anger"],
  "time_reference": null,
  "is_specialized_domain": false,
  "chain_of_thought_questions": [
    {"question": "What is anger?", "reasoning_types": ["deductive"]},
    {"question": "How can anger be tamed?", "reasoning_types": ["inductive"]}
  ],
  "ideal_mix": {"events": 5, "claims_ideas": 5, "chunks": 2, "relationships": 3}
}`

const finalAnswer = "Anger is a brief madness, and it can be tamed by delay."

type harness struct {
	handler  *Handler
	store    conversation.Store
	thinker  *providers.MockProvider
	answerer *providers.MockProvider
	graph    *graph.MockClient
}

type harnessOpts struct {
	legResponder providers.Responder
	answerer     *providers.MockProvider
	store        conversation.Store
	graph        *graph.MockClient
	retries      int

	// wrapPlanner and wrapEmbedder decorate the question-level collaborators.
	wrapPlanner  func(Planner) Planner
	wrapEmbedder func(embedder.Embedder) embedder.Embedder
	meter        metric.Meter
}

func legAnswer(req llm.CompletionRequest) (string, error) {
	user := req.Messages[len(req.Messages)-1].Content
	q := strings.TrimPrefix(strings.SplitN(user, "\n", 2)[0], "## Question: ")
	return "Thinking about " + q + "\n```mermaid\ngraph TD\n  A[" + q + "] --> B[insight]\n```", nil
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()

	if o.legResponder == nil {
		o.legResponder = legAnswer
	}
	thinker := providers.NewMockProviderFunc("thinker", func(req llm.CompletionRequest) (string, error) {
		if req.Model == "planner" {
			return planJSON, nil
		}
		return o.legResponder(req)
	})
	if o.answerer == nil {
		o.answerer = providers.NewMockProviderFunc("answerer", func(llm.CompletionRequest) (string, error) {
			return finalAnswer, nil
		})
	}
	if o.store == nil {
		s, err := conversation.NewFileStore(t.TempDir())
		require.NoError(t, err)
		o.store = s
	}
	if o.graph == nil {
		o.graph = graph.NewMockClient().
			OnQuery("node.start_date", map[string]any{
				"name": "Exile", "description": "Seneca is exiled to Corsica.", "emotion": "sorrow", "similarity": 0.8,
			}).
			OnQuery("node.confidence", map[string]any{"content": "Anger is temporary madness.", "similarity": 0.7})
	}

	routes, err := llm.NewRouteTable(map[llm.UseCase]llm.Route{
		llm.UseCaseDefault:  {Provider: "answerer", Model: "writer"},
		llm.UseCasePlanning: {Provider: "thinker", Model: "planner"},
		llm.UseCaseDiagram:  {Provider: "thinker", Model: "diagrammer"},
	})
	require.NoError(t, err)
	gen, err := llm.NewGenerator([]llm.LLMProvider{thinker, o.answerer}, routes)
	require.NoError(t, err)

	extractor, err := planning.NewExtractor(gen, nil)
	require.NoError(t, err)
	lib, err := prompt.DefaultLibrary()
	require.NoError(t, err)

	emb := embedder.NewMockEmbedder(4)
	engine := retrieval.NewEngine(o.graph, retrieval.DefaultConfig())
	orch := reasoning.NewOrchestrator(emb, engine, gen, lib, reasoning.DefaultConfig())

	var (
		planner     Planner           = extractor
		questionEmb embedder.Embedder = emb
	)
	if o.wrapPlanner != nil {
		planner = o.wrapPlanner(planner)
	}
	if o.wrapEmbedder != nil {
		questionEmb = o.wrapEmbedder(questionEmb)
	}
	var hopts []Option
	if o.meter != nil {
		hopts = append(hopts, WithMeter(o.meter))
	}

	cfg := DefaultConfig()
	cfg.Retries = o.retries
	h := NewHandler(Deps{
		Planner:   planner,
		Embedder:  questionEmb,
		Retriever: engine,
		Reasoner:  orch,
		Assembler: prompt.NewAssembler(prompt.DefaultAssemblerConfig()),
		Prompts:   lib,
		Generator: gen,
		Store:     o.store,
	}, cfg, hopts...)

	return &harness{handler: h, store: o.store, thinker: thinker, answerer: o.answerer, graph: o.graph}
}

func collect(ch <-chan Event) []Event {
	var events []Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func chunksOf(events []Event) string {
	var sb strings.Builder
	for _, e := range events {
		if e.Type == EventChunk {
			sb.WriteString(e.Chunk)
		}
	}
	return sb.String()
}

func assertSingleError(t *testing.T, events []Event) {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, GenericErrorMessage, last.Message)
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, EventChunk, e.Type)
	}
}

func assertNotPersisted(t *testing.T, store conversation.Store, id string) {
	t.Helper()
	turns, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestHandle_StreamsAnswerAndPersists(t *testing.T) {
	h := newHarness(t, harnessOpts{retries: 1})
	ctx := context.Background()

	events := collect(h.handler.Handle(ctx, Request{Question: "What did Seneca say about anger?", ConversationID: "c1"}))

	require.NotEmpty(t, events)
	assert.Equal(t, finalAnswer, chunksOf(events))

	last := events[len(events)-1]
	require.Equal(t, EventDiagrams, last.Type)
	require.Len(t, last.Diagrams, 2)
	assert.Equal(t, "What is anger?", last.Diagrams[0].SourceQuestion)
	assert.Equal(t, "How can anger be tamed?", last.Diagrams[1].SourceQuestion)

	answerCalls := h.answerer.Calls()
	require.Len(t, answerCalls, 1)
	finalPrompt := answerCalls[0].Messages[1].Content
	assert.Contains(t, finalPrompt, "# Information From Your Mind")
	assert.Contains(t, finalPrompt, "Exile: Seneca is exiled to Corsica.")
	assert.Contains(t, finalPrompt, "## What is anger?\n\nThinking about What is anger?")
	assert.True(t, strings.HasSuffix(finalPrompt, "User: What did Seneca say about anger?\n\nAI:"))

	turns, err := h.store.Load(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What did Seneca say about anger?", turns[0].UserText)
	assert.Equal(t, finalAnswer, turns[0].ResponseText)
	assert.Len(t, turns[0].Diagrams, 2)

	// a second turn sees the first as history
	collect(h.handler.Handle(ctx, Request{Question: "And about grief?", ConversationID: "c1"}))
	answerCalls = h.answerer.Calls()
	require.Len(t, answerCalls, 2)
	assert.Contains(t, answerCalls[1].Messages[1].Content, "User: What did Seneca say about anger?\nAI: "+finalAnswer)
	assert.Equal(t, 0, h.handler.locks.size())
}

func TestHandle_FailingLegPersistsNothing(t *testing.T) {
	h := newHarness(t, harnessOpts{legResponder: func(req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "tamed") {
			return "", errors.New("model overloaded")
		}
		return legAnswer(req)
	}})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c2"}))

	require.Len(t, events, 1)
	assertSingleError(t, events)
	assert.Empty(t, h.answerer.Calls())
	assertNotPersisted(t, h.store, "c2")
}

func TestHandle_RetrievalFailure(t *testing.T) {
	client := graph.NewMockClient().OnQueryError("node.text AS content", errors.New("index offline"))
	h := newHarness(t, harnessOpts{graph: client})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c3"}))

	require.Len(t, events, 1)
	assertSingleError(t, events)
	assertNotPersisted(t, h.store, "c3")
}

func TestHandle_RetriesStreamBeforeFirstChunk(t *testing.T) {
	var calls atomic.Int32
	answerer := providers.NewMockProviderFunc("answerer", func(llm.CompletionRequest) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("connection reset by peer")
		}
		return finalAnswer, nil
	})
	h := newHarness(t, harnessOpts{answerer: answerer, retries: 1})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c4"}))

	assert.Equal(t, finalAnswer, chunksOf(events))
	assert.Equal(t, EventDiagrams, events[len(events)-1].Type)
	assert.Len(t, answerer.Calls(), 2)
}

func TestHandle_NoRetryWhenDisabledOrNotRetryable(t *testing.T) {
	tests := []struct {
		name    string
		retries int
		err     error
	}{
		{"retries disabled", 0, errors.New("connection reset by peer")},
		{"auth failure", 1, errors.New("invalid api key")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answerer := providers.NewMockProviderFunc("answerer", func(llm.CompletionRequest) (string, error) {
				return "", tt.err
			})
			h := newHarness(t, harnessOpts{answerer: answerer, retries: tt.retries})

			events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c5"}))

			assertSingleError(t, events)
			assert.Len(t, answerer.Calls(), 1)
			assertNotPersisted(t, h.store, "c5")
		})
	}
}

func TestHandle_NoRetryAfterChunksDelivered(t *testing.T) {
	answerer := providers.NewMockProviderFunc("answerer", func(llm.CompletionRequest) (string, error) {
		return finalAnswer, nil
	}).FailStreamAfter(2)
	h := newHarness(t, harnessOpts{answerer: answerer, retries: 1})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c6"}))

	require.Len(t, events, 3)
	assertSingleError(t, events)
	assert.Equal(t, finalAnswer[:10], chunksOf(events))
	assert.Len(t, answerer.Calls(), 1)
	assertNotPersisted(t, h.store, "c6")
}

func TestHandle_CancelledTurnNotPersisted(t *testing.T) {
	answerer := providers.NewMockProviderFunc("answerer", func(llm.CompletionRequest) (string, error) {
		return finalAnswer, nil
	}).WithDelay(func(llm.CompletionRequest) time.Duration { return 5 * time.Second })
	h := newHarness(t, harnessOpts{answerer: answerer, retries: 1})

	ctx, cancel := context.WithCancel(context.Background())
	ch := h.handler.Handle(ctx, Request{Question: "Anger?", ConversationID: "c7"})
	require.Eventually(t, func() bool { return len(answerer.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	events := collect(ch)
	for _, e := range events {
		assert.NotEqual(t, EventDiagrams, e.Type)
	}
	assertNotPersisted(t, h.store, "c7")
	assert.Len(t, answerer.Calls(), 1)
}

type failingAppendStore struct {
	conversation.Store
}

func (failingAppendStore) Append(ctx context.Context, id string, turn conversation.Turn) error {
	return errors.New("disk full")
}

func TestHandle_PersistenceFailureWarnsAfterDiagrams(t *testing.T) {
	s, err := conversation.NewFileStore(t.TempDir())
	require.NoError(t, err)
	h := newHarness(t, harnessOpts{store: failingAppendStore{Store: s}})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c8"}))

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, finalAnswer, chunksOf(events))
	assert.Equal(t, EventDiagrams, events[len(events)-2].Type)
	assert.Equal(t, EventWarning, events[len(events)-1].Type)
	assert.Equal(t, persistenceWarning, events[len(events)-1].Message)
}

func TestHandle_SanitizesDiagramLabels(t *testing.T) {
	h := newHarness(t, harnessOpts{legResponder: func(llm.CompletionRequest) (string, error) {
		return "```mermaid\ngraph TD\n  A[\"Anger (ira) {rage}\"] --> B[\"50% calm\"]\n```", nil
	}})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c10"}))
	last := events[len(events)-1]
	require.Equal(t, EventDiagrams, last.Type)
	require.Len(t, last.Diagrams, 2)
	want := "graph TD\n  A[\"Anger ira rage\"] --> B[\"50 calm\"]"
	assert.Equal(t, want, last.Diagrams[0].Code)

	turns, err := h.store.Load(context.Background(), "c10")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, want, turns[0].Diagrams[0].Code)
}

// signalEmbedder closes embedded on its first call.
type signalEmbedder struct {
	embedder.Embedder
	once     sync.Once
	embedded chan struct{}
}

func (e *signalEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.once.Do(func() { close(e.embedded) })
	return e.Embedder.Embed(ctx, text)
}

// waitingPlanner plans only after the question embedding has started.
type waitingPlanner struct {
	Planner
	embedded   <-chan struct{}
	overlapped atomic.Bool
}

func (p *waitingPlanner) Extract(ctx context.Context, query string) planning.QueryPlan {
	select {
	case <-p.embedded:
		p.overlapped.Store(true)
	case <-time.After(2 * time.Second):
	}
	return p.Planner.Extract(ctx, query)
}

func TestHandle_EmbedsQuestionWhilePlanning(t *testing.T) {
	embedded := make(chan struct{})
	var planner *waitingPlanner
	h := newHarness(t, harnessOpts{
		wrapPlanner: func(p Planner) Planner {
			planner = &waitingPlanner{Planner: p, embedded: embedded}
			return planner
		},
		wrapEmbedder: func(e embedder.Embedder) embedder.Embedder {
			return &signalEmbedder{Embedder: e, embedded: embedded}
		},
	})

	events := collect(h.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c11"}))
	assert.Equal(t, finalAnswer, chunksOf(events))
	assert.True(t, planner.overlapped.Load(), "question embedding started before planning finished")
}

func TestHandle_RecordsTurnMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	client := graph.NewMockClient().OnQueryError("node.text AS content", errors.New("index offline"))

	ok := newHarness(t, harnessOpts{meter: mp.Meter("test")})
	collect(ok.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c12"}))
	failing := newHarness(t, harnessOpts{meter: mp.Meter("test"), graph: client})
	collect(failing.handler.Handle(context.Background(), Request{Question: "Anger?", ConversationID: "c13"}))
	collect(failing.handler.Handle(context.Background(), Request{Question: " ", ConversationID: "c13"}))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	histCounts := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				assert.Equal(t, "cortex.turn.count", m.Name)
				for _, dp := range data.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("status"))
					counts[v.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				assert.Equal(t, "cortex.turn.duration", m.Name)
				for _, dp := range data.DataPoints {
					v, _ := dp.Attributes.Value(attribute.Key("status"))
					histCounts[v.AsString()] += dp.Count
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{statusOK: 1, statusFailed: 1, statusRejected: 1}, counts)
	assert.Equal(t, map[string]uint64{statusOK: 1, statusFailed: 1, statusRejected: 1}, histCounts)
}

func TestHandle_InvalidRequest(t *testing.T) {
	h := newHarness(t, harnessOpts{})

	for _, req := range []Request{
		{Question: "  ", ConversationID: "c9"},
		{Question: "Anger?", ConversationID: "../../etc"},
	} {
		events := collect(h.handler.Handle(context.Background(), req))
		require.Len(t, events, 1)
		assertSingleError(t, events)
	}
	assert.Empty(t, h.thinker.Calls())
}

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{chunkEvent("Hel"), `{"chunk":"Hel"}`},
		{diagramsEvent(nil), `{"diagrams":[]}`},
		{diagramsEvent([]diagram.Diagram{{SourceQuestion: "q", Code: "graph TD"}}), `{"diagrams":[{"sourceQuestion":"q","code":"graph TD"}]}`},
		{warningEvent("careful"), `{"warning":"careful"}`},
		{errorEvent(), `{"error":"` + GenericErrorMessage + `"}`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.event)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(b))
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		maxSeen atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same")
			defer unlock()
			n := active.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Equal(t, 0, km.size())
}

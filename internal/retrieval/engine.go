package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zero-day-ai/cortex/internal/graph"
)

// Retriever is the retrieval surface the reasoning pipeline consumes.
type Retriever interface {
	RelevantEventsAndClaims(ctx context.Context, embedding []float64, p EventClaimParams) (events, claims []KnowledgeItem, err error)
	RelevantConceptRelationships(ctx context.Context, embedding []float64, maxItems int, threshold float64) ([]ConceptRelationship, error)
	ConceptRelationshipsByName(ctx context.Context, names []string, maxItems int) ([]ConceptRelationship, error)
	RelevantSpecializedReferences(ctx context.Context, embedding []float64, threshold float64, maxItems int) ([]KnowledgeItem, error)
	RelevantChunks(ctx context.Context, embedding []float64, maxChunks int, threshold float64) ([]KnowledgeItem, error)
}

// IndexConfig names the vector index behind each node kind.
type IndexConfig struct {
	Event   string `mapstructure:"event" yaml:"event" validate:"required"`
	Claim   string `mapstructure:"claim" yaml:"claim" validate:"required"`
	Concept string `mapstructure:"concept" yaml:"concept" validate:"required"`
	Chunk   string `mapstructure:"chunk" yaml:"chunk" validate:"required"`
}

// Config tunes retrieval.
type Config struct {
	SimilarityThreshold      float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold" validate:"gte=0"`
	ChunkSimilarityThreshold float64 `mapstructure:"chunk_similarity_threshold" yaml:"chunk_similarity_threshold" validate:"gte=0"`

	// CandidateMultiplier widens the vector search pool so post-filters
	// (date windows, status) still leave K items.
	CandidateMultiplier int `mapstructure:"candidate_multiplier" yaml:"candidate_multiplier" validate:"gte=1"`
	MinCandidates       int `mapstructure:"min_candidates" yaml:"min_candidates" validate:"gte=1"`

	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout" validate:"gt=0"`

	Indexes IndexConfig `mapstructure:"indexes" yaml:"indexes"`

	// ReferenceLabels are the node labels searched for specialized
	// references; each has a vector index named <lowercase label>_embeddings.
	ReferenceLabels  []string `mapstructure:"reference_labels" yaml:"reference_labels" validate:"min=1"`
	ExcludedStatuses []string `mapstructure:"excluded_statuses" yaml:"excluded_statuses"`
}

// DefaultConfig returns the retrieval settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:      0.3,
		ChunkSimilarityThreshold: 0.35,
		CandidateMultiplier:      4,
		MinCandidates:            50,
		QueryTimeout:             15 * time.Second,
		Indexes: IndexConfig{
			Event:   "event_embeddings",
			Claim:   "claim_embeddings",
			Concept: "concept_embeddings",
			Chunk:   "chunk_embeddings",
		},
		ReferenceLabels:  []string{"Provision", "Definition", "Condition", "Consequence", "Scope"},
		ExcludedStatuses: []string{"withdrawn", "superseded", "repealed"},
	}
}

// maxCosine is the largest score a normalized cosine similarity can take.
const maxCosine = 1.0

// Engine runs retrieval queries against the graph store. Each query gets
// its own session from the client pool and its own timeout.
type Engine struct {
	client graph.Client
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for temporal relevance.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger for query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an Engine that queries client.
func NewEngine(client graph.Client, cfg Config, opts ...Option) *Engine {
	if cfg.CandidateMultiplier < 1 {
		cfg.CandidateMultiplier = 1
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	e := &Engine{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RelevantEventsAndClaims returns the top events by combined score and the
// top claims by similarity. The two kinds are queried concurrently.
func (e *Engine) RelevantEventsAndClaims(ctx context.Context, embedding []float64, p EventClaimParams) ([]KnowledgeItem, []KnowledgeItem, error) {
	if err := checkEmbedding("events_and_claims", embedding); err != nil {
		return nil, nil, err
	}

	var events, claims []KnowledgeItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = e.events(gctx, embedding, p.MaxEvents, p.SimilarityThreshold, p.DateRange)
		return err
	})
	g.Go(func() error {
		var err error
		claims, err = e.claims(gctx, embedding, p.MaxClaims, p.SimilarityThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	e.logger.DebugContext(ctx, "retrieved events and claims",
		"events", len(events), "claims", len(claims), "date_range", p.DateRange)
	return events, claims, nil
}

func (e *Engine) events(ctx context.Context, embedding []float64, k int, threshold float64, dr DateRange) ([]KnowledgeItem, error) {
	const op = "events"
	if k <= 0 || threshold > maxCosine {
		return []KnowledgeItem{}, nil
	}

	rows, err := e.query(ctx, op, eventsQuery, map[string]any{
		"index":      e.cfg.Indexes.Event,
		"candidates": e.candidates(k),
		"embedding":  embedding,
		"threshold":  threshold,
		"date_range": string(dr),
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	items := make([]KnowledgeItem, 0, len(rows))
	for _, row := range rows {
		item, err := parseEvent(row)
		if err != nil {
			return nil, newRetrievalError(op, ErrCodeResultParsing, "unexpected event row", err)
		}
		if item.Similarity < threshold {
			continue
		}
		var age time.Duration
		if item.StartDate != nil {
			age = now.Sub(*item.StartDate)
		}
		temporal := TemporalRelevance(dr, age)
		combined := CombinedScore(item.Similarity, temporal)
		item.TemporalRelevance = &temporal
		item.CombinedScore = &combined
		items = append(items, item)
	}
	return topK(items, k), nil
}

func (e *Engine) claims(ctx context.Context, embedding []float64, k int, threshold float64) ([]KnowledgeItem, error) {
	const op = "claims"
	if k <= 0 || threshold > maxCosine {
		return []KnowledgeItem{}, nil
	}

	rows, err := e.query(ctx, op, claimsQuery, map[string]any{
		"index":      e.cfg.Indexes.Claim,
		"candidates": e.candidates(k),
		"embedding":  embedding,
		"threshold":  threshold,
		"limit":      k,
	})
	if err != nil {
		return nil, err
	}

	items := make([]KnowledgeItem, 0, len(rows))
	for _, row := range rows {
		item, err := parseClaim(row)
		if err != nil {
			return nil, newRetrievalError(op, ErrCodeResultParsing, "unexpected claim row", err)
		}
		if item.Similarity >= threshold {
			items = append(items, item)
		}
	}
	return topK(items, k), nil
}

// RelevantConceptRelationships finds concepts similar to the embedding and
// returns their direct edges to other concepts.
func (e *Engine) RelevantConceptRelationships(ctx context.Context, embedding []float64, maxItems int, threshold float64) ([]ConceptRelationship, error) {
	const op = "concept_relationships"
	if err := checkEmbedding(op, embedding); err != nil {
		return nil, err
	}
	if maxItems <= 0 || threshold > maxCosine {
		return []ConceptRelationship{}, nil
	}

	rows, err := e.query(ctx, op, conceptRelationshipsQuery, map[string]any{
		"index":      e.cfg.Indexes.Concept,
		"candidates": e.candidates(maxItems),
		"embedding":  embedding,
		"threshold":  threshold,
		"limit":      maxItems,
	})
	if err != nil {
		return nil, err
	}

	rels := make([]ConceptRelationship, 0, len(rows))
	for _, row := range rows {
		rel, err := parseRelationship(row, true)
		if err != nil {
			return nil, newRetrievalError(op, ErrCodeResultParsing, "unexpected relationship row", err)
		}
		if rel.Similarity >= threshold {
			rels = append(rels, rel)
		}
	}
	sortRelationships(rels)
	if len(rels) > maxItems {
		rels = rels[:maxItems]
	}
	return rels, nil
}

// ConceptRelationshipsByName returns edges of concepts whose name matches
// one of names exactly. Matches carry similarity 1.
func (e *Engine) ConceptRelationshipsByName(ctx context.Context, names []string, maxItems int) ([]ConceptRelationship, error) {
	const op = "concepts_by_name"
	if len(names) == 0 || maxItems <= 0 {
		return []ConceptRelationship{}, nil
	}

	rows, err := e.query(ctx, op, conceptsByNameQuery, map[string]any{
		"names": names,
		"limit": maxItems,
	})
	if err != nil {
		return nil, err
	}

	rels := make([]ConceptRelationship, 0, len(rows))
	for _, row := range rows {
		rel, err := parseRelationship(row, false)
		if err != nil {
			return nil, newRetrievalError(op, ErrCodeResultParsing, "unexpected relationship row", err)
		}
		rel.Similarity = maxCosine
		rels = append(rels, rel)
	}
	sortRelationships(rels)
	if len(rels) > maxItems {
		rels = rels[:maxItems]
	}
	return rels, nil
}

// RelevantSpecializedReferences unions similar nodes across the reference
// labels, skipping withdrawn or superseded ones. Identical (kind, content)
// pairs are kept once, at their highest similarity.
func (e *Engine) RelevantSpecializedReferences(ctx context.Context, embedding []float64, threshold float64, maxItems int) ([]KnowledgeItem, error) {
	const op = "specialized_references"
	if err := checkEmbedding(op, embedding); err != nil {
		return nil, err
	}
	if maxItems <= 0 || threshold > maxCosine || len(e.cfg.ReferenceLabels) == 0 {
		return []KnowledgeItem{}, nil
	}

	indexes := make([]map[string]any, 0, len(e.cfg.ReferenceLabels))
	for _, label := range e.cfg.ReferenceLabels {
		indexes = append(indexes, map[string]any{
			"name":  strings.ToLower(label) + "_embeddings",
			"label": label,
		})
	}
	excluded := make([]string, 0, len(e.cfg.ExcludedStatuses))
	for _, s := range e.cfg.ExcludedStatuses {
		excluded = append(excluded, normalize(s))
	}

	rows, err := e.query(ctx, op, referencesQuery, map[string]any{
		"indexes":           indexes,
		"candidates":        e.candidates(maxItems),
		"embedding":         embedding,
		"threshold":         threshold,
		"excluded_statuses": excluded,
	})
	if err != nil {
		return nil, err
	}

	excludedSet := make(map[string]struct{}, len(excluded))
	for _, s := range excluded {
		excludedSet[s] = struct{}{}
	}

	type key struct {
		kind    Kind
		content string
	}
	best := make(map[key]int)
	items := make([]KnowledgeItem, 0, len(rows))
	for _, row := range rows {
		item, err := parseReference(row)
		if err != nil {
			return nil, newRetrievalError(op, ErrCodeResultParsing, "unexpected reference row", err)
		}
		if item.Similarity < threshold {
			continue
		}
		if _, skip := excludedSet[normalize(item.Status)]; skip {
			continue
		}
		k := key{item.Kind, strings.TrimSpace(item.Content)}
		if i, seen := best[k]; seen {
			if item.Similarity > items[i].Similarity {
				items[i] = item
			}
			continue
		}
		best[k] = len(items)
		items = append(items, item)
	}
	return topK(items, maxItems), nil
}

// RelevantChunks returns document passages similar to the embedding.
func (e *Engine) RelevantChunks(ctx context.Context, embedding []float64, maxChunks int, threshold float64) ([]KnowledgeItem, error) {
	const op = "chunks"
	if err := checkEmbedding(op, embedding); err != nil {
		return nil, err
	}
	if maxChunks <= 0 || threshold > maxCosine {
		return []KnowledgeItem{}, nil
	}

	rows, err := e.query(ctx, op, chunksQuery, map[string]any{
		"index":      e.cfg.Indexes.Chunk,
		"candidates": e.candidates(maxChunks),
		"embedding":  embedding,
		"threshold":  threshold,
		"limit":      maxChunks,
	})
	if err != nil {
		return nil, err
	}

	items := make([]KnowledgeItem, 0, len(rows))
	for _, row := range rows {
		item, err := parseChunk(row)
		if err != nil {
			return nil, newRetrievalError(op, ErrCodeResultParsing, "unexpected chunk row", err)
		}
		if item.Similarity >= threshold {
			items = append(items, item)
		}
	}
	return topK(items, maxChunks), nil
}

func (e *Engine) query(ctx context.Context, op, cypher string, params map[string]any) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	res, err := e.client.Query(ctx, cypher, params)
	if err != nil {
		rerr := wrapQueryError(ctx, op, err)
		e.logger.WarnContext(ctx, "retrieval query failed", "op", op, "code", rerr.Code(), "error", err)
		return nil, rerr
	}
	return res.Records, nil
}

func (e *Engine) candidates(k int) int {
	return max(k*e.cfg.CandidateMultiplier, e.cfg.MinCandidates, k)
}

func checkEmbedding(op string, embedding []float64) error {
	if len(embedding) == 0 {
		return newRetrievalError(op, ErrCodeInvalidInput, "query embedding is empty", nil)
	}
	return nil
}

// topK sorts by score descending, ties broken by name then content so
// results are deterministic, and truncates to k.
func topK(items []KnowledgeItem, k int) []KnowledgeItem {
	sort.SliceStable(items, func(i, j int) bool {
		si, sj := items[i].Score(), items[j].Score()
		if si != sj {
			return si > sj
		}
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Content < items[j].Content
	})
	if len(items) > k {
		items = items[:k]
	}
	return items
}

func sortRelationships(rels []ConceptRelationship) {
	sort.SliceStable(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.RelationType != b.RelationType {
			return a.RelationType < b.RelationType
		}
		return a.Target < b.Target
	})
}

// MergeRelationships concatenates relationship lists, keeping the first
// occurrence of each (source, type, target) triple, and caps the result.
func MergeRelationships(maxItems int, lists ...[]ConceptRelationship) []ConceptRelationship {
	seen := make(map[string]struct{})
	out := []ConceptRelationship{}
	for _, list := range lists {
		for _, rel := range list {
			k := fmt.Sprintf("%s\x00%s\x00%s", rel.Source, rel.RelationType, rel.Target)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, rel)
		}
	}
	if maxItems >= 0 && len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

var _ Retriever = (*Engine)(nil)

package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zero-day-ai/cortex/internal/graph"
)

// VectorIndex is one vector index over the embedding property of a label.
type VectorIndex struct {
	Name  string
	Label string
}

// Index DDL cannot take parameters, so names are restricted to identifiers.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const createVectorIndex = "CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.embedding) " +
	"OPTIONS {indexConfig: {`vector.dimensions`: $dimensions, `vector.similarity_function`: 'cosine'}}"

// VectorIndexes lists every index the engine queries.
func VectorIndexes(cfg Config) []VectorIndex {
	out := []VectorIndex{
		{Name: cfg.Indexes.Event, Label: "Event"},
		{Name: cfg.Indexes.Claim, Label: "Claim"},
		{Name: cfg.Indexes.Concept, Label: "Concept"},
		{Name: cfg.Indexes.Chunk, Label: "Chunk"},
	}
	for _, label := range cfg.ReferenceLabels {
		out = append(out, VectorIndex{Name: strings.ToLower(label) + "_embeddings", Label: label})
	}
	return out
}

// EnsureIndexes creates any missing vector index. Existing indexes are left
// untouched, including ones built with other dimensions.
func EnsureIndexes(ctx context.Context, client graph.Client, cfg Config, dimensions int) ([]VectorIndex, error) {
	const op = "ensure_indexes"
	if dimensions <= 0 {
		return nil, newRetrievalError(op, ErrCodeInvalidInput,
			fmt.Sprintf("index dimensions must be positive (got %d)", dimensions), nil)
	}

	indexes := VectorIndexes(cfg)
	for _, idx := range indexes {
		if !identifier.MatchString(idx.Name) || !identifier.MatchString(idx.Label) {
			return nil, newRetrievalError(op, ErrCodeInvalidInput,
				fmt.Sprintf("invalid index %q on label %q", idx.Name, idx.Label), nil)
		}
	}
	for _, idx := range indexes {
		stmt := fmt.Sprintf(createVectorIndex, idx.Name, idx.Label)
		if _, err := client.Execute(ctx, stmt, map[string]any{"dimensions": dimensions}); err != nil {
			return nil, wrapQueryError(ctx, op+" "+idx.Name, err)
		}
	}
	return indexes, nil
}

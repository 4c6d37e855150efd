package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"sync"

	"github.com/zero-day-ai/cortex/internal/types"
)

// MockEmbedder produces deterministic unit vectors seeded from a hash of
// the text, so equal inputs embed identically.
type MockEmbedder struct {
	mu         sync.Mutex
	dimensions int
	model      string
	calls      []string
	err        error
}

// NewMockEmbedder creates a deterministic embedder producing vectors of the
// given size.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockEmbedder{dimensions: dimensions, model: "mock-embedder"}
}

// SetError makes every subsequent Embed fail with err.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the texts passed to Embed, in call order.
func (m *MockEmbedder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Embed records the call and hashes text into a unit vector.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(ErrCodeEmbeddingFailed, "embedding cancelled", err)
	}
	return hashVector(text, m.dimensions), nil
}

func (m *MockEmbedder) Dimensions() int { return m.dimensions }

func (m *MockEmbedder) Model() string { return m.model }

func (m *MockEmbedder) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock embedder")
}

func hashVector(text string, dims int) []float64 {
	sum := sha256.Sum256([]byte(text))
	rng := rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))

	vec := make([]float64, dims)
	var norm float64
	for i := range vec {
		vec[i] = rng.Float64()*2 - 1
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

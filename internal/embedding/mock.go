package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/pgvector/pgvector-go"
)

// MockProvider generates deterministic embeddings without any network
// dependency. The text is hashed to seed a PRNG, the vector is drawn from
// a Gaussian and normalized to unit length. Identical text always maps to
// the identical vector, so retrieval results are reproducible run to run.
type MockProvider struct {
	dims int
}

// NewMockProvider creates a deterministic mock provider.
func NewMockProvider(dims int) *MockProvider {
	return &MockProvider{dims: dims}
}

// Dimensions returns the embedding vector size.
func (p *MockProvider) Dimensions() int {
	return p.dims
}

// Name identifies the provider.
func (p *MockProvider) Name() string {
	return "mock"
}

// Embed returns the deterministic embedding for text.
func (p *MockProvider) Embed(_ context.Context, text string) (pgvector.Vector, error) {
	return p.vectorFor(text), nil
}

// EmbedBatch returns deterministic embeddings for each text.
func (p *MockProvider) EmbedBatch(_ context.Context, texts []string) ([]pgvector.Vector, error) {
	vecs := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		vecs[i] = p.vectorFor(text)
	}
	return vecs, nil
}

func (p *MockProvider) vectorFor(text string) pgvector.Vector {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, p.dims)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return pgvector.NewVector(vec)
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return pgvector.NewVector(vec)
}

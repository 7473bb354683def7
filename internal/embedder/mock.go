package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// MockProvider is a deterministic in-process embedder for tests and
// offline development. Vectors are derived from the text hash so the same
// text always embeds to the same unit-length vector.
type MockProvider struct {
	dimension int

	// FailWith, when set, is returned by every call. Used to exercise
	// failure paths.
	FailWith error
}

// NewMockProvider creates a mock embedder with the given dimension.
func NewMockProvider(dimension int) *MockProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &MockProvider{dimension: dimension}
}

func (m *MockProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := sha256.Sum256([]byte(req.Text))
	vector := make([]float32, m.dimension)
	for i := 0; i < m.dimension; i++ {
		idx := (i * 4) % 28
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		// Mix the position in so dimensions beyond the hash length differ
		vector[i] = (float32((val+uint32(i)*2654435761)%100000)/100000.0)*2 - 1
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := float32(math.Sqrt(sum))
		for i := range vector {
			vector[i] /= norm
		}
	}

	return &Embedding{
		Vector:    vector,
		Dimension: m.dimension,
		Provider:  "mock",
		Model:     "mock-v1",
		Hash:      ComputeHash(req.Text),
	}, nil
}

func (m *MockProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := m.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   "mock",
		Model:      "mock-v1",
	}, nil
}

func (m *MockProvider) Dimension() int   { return m.dimension }
func (m *MockProvider) Provider() string { return "mock" }
func (m *MockProvider) Model() string    { return "mock-v1" }
func (m *MockProvider) Close() error     { return nil }

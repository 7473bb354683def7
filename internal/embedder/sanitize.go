package embedder

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// sanitizingEmbedder wraps a provider and enforces the package guarantee:
// every returned vector has exactly the declared dimension and contains
// only finite values. Non-finite components are repaired to 0 and logged
// rather than surfaced, since a NaN reaching dot-product scoring would
// silently corrupt ranking.
type sanitizingEmbedder struct {
	inner Embedder
	log   *logrus.Entry
}

func newSanitizingEmbedder(inner Embedder, log *logrus.Entry) *sanitizingEmbedder {
	return &sanitizingEmbedder{inner: inner, log: log}
}

func (s *sanitizingEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	emb, err := s.inner.GenerateEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.sanitize(emb); err != nil {
		return nil, err
	}
	return emb, nil
}

func (s *sanitizingEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	resp, err := s.inner.GenerateBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, emb := range resp.Embeddings {
		if err := s.sanitize(emb); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *sanitizingEmbedder) sanitize(emb *Embedding) error {
	if len(emb.Vector) != s.inner.Dimension() {
		return fmt.Errorf("%w: expected %d, got %d",
			types.ErrDimensionMismatch, s.inner.Dimension(), len(emb.Vector))
	}

	repaired := SanitizeVector(emb.Vector)
	if repaired > 0 {
		s.log.WithFields(logrus.Fields{
			"provider": s.inner.Provider(),
			"repaired": repaired,
		}).Warn("replaced non-finite embedding values with 0")
	}
	emb.Dimension = len(emb.Vector)
	return nil
}

func (s *sanitizingEmbedder) Dimension() int   { return s.inner.Dimension() }
func (s *sanitizingEmbedder) Provider() string { return s.inner.Provider() }
func (s *sanitizingEmbedder) Model() string    { return s.inner.Model() }
func (s *sanitizingEmbedder) Close() error     { return s.inner.Close() }

// SanitizeVector replaces NaN and Inf components with 0 in place and
// returns how many components were repaired.
func SanitizeVector(v []float32) int {
	repaired := 0
	for i, val := range v {
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v[i] = 0
			repaired++
		}
	}
	return repaired
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}

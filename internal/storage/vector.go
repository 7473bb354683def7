package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// Search returns the records nearest to the query vector, best first.
// Categorical filters are pushed into SQL; similarity is computed in Go
// over the candidate embeddings.
func (s *SQLiteStore) Search(ctx context.Context, queryVector []float32, filter *Filter, limit int) ([]VectorHit, error) {
	if limit <= 0 {
		return []VectorHit{}, nil
	}
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", types.ErrIndexQueryFailed)
	}

	query := "SELECT payload, embedding FROM vulns WHERE embedding IS NOT NULL"
	var args []interface{}
	if !filter.Empty() {
		placeholders := make([]string, len(filter.Ecosystems))
		for i, eco := range filter.Ecosystems {
			placeholders[i] = "?"
			args = append(args, eco)
		}
		query += " AND ecosystem IN (" + strings.Join(placeholders, ", ") + ")"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: vector query: %v", types.ErrIndexQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []VectorHit
	for rows.Next() {
		var payload string
		var blob []byte
		if err := rows.Scan(&payload, &blob); err != nil {
			return nil, fmt.Errorf("%w: vector scan: %v", types.ErrIndexQueryFailed, err)
		}

		vector, err := deserializeVector(blob)
		if err != nil {
			s.log.WithError(err).Warn("skipping corrupt embedding")
			continue
		}
		if len(vector) != len(queryVector) {
			return nil, fmt.Errorf("%w: stored dimension %d, query dimension %d",
				types.ErrDimensionMismatch, len(vector), len(queryVector))
		}

		var rec types.VulnerabilityRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			s.log.WithError(err).Warn("skipping undecodable record payload")
			continue
		}

		hits = append(hits, VectorHit{
			Record: rec,
			Score:  cosineSimilarity(queryVector, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: vector rows: %v", types.ErrIndexQueryFailed, err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// serializeVector converts a float32 slice to a little-endian byte blob.
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice.
func deserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob: %d bytes", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector, nil
}

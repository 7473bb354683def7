package storage

import (
	"context"
	"time"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// Filter narrows index queries to a set of categorical field values. It is
// a conjunction of exact matches; numeric ranges and full-text predicates
// belong to the keyword index's query string, not here.
type Filter struct {
	Ecosystems []string
}

// Empty reports whether the filter matches everything.
func (f *Filter) Empty() bool {
	return f == nil || len(f.Ecosystems) == 0
}

// Matches reports whether a record passes the filter.
func (f *Filter) Matches(rec *types.VulnerabilityRecord) bool {
	if f.Empty() {
		return true
	}
	for _, eco := range f.Ecosystems {
		if rec.Ecosystem == eco {
			return true
		}
	}
	return false
}

// VectorHit is one result from nearest-neighbor search.
type VectorHit struct {
	Record types.VulnerabilityRecord
	Score  float64 // cosine similarity, [−1,1]; [0,1] for unit vectors
}

// KeywordHit is one result from full-text search. Score is a positive,
// unbounded BM25-style relevance (higher is better).
type KeywordHit struct {
	Record types.VulnerabilityRecord
	Score  float64
}

// VectorIndex stores and retrieves records by embedding similarity.
type VectorIndex interface {
	// Upsert writes a record and its embedding. Keyed by the record id;
	// writing the same id again replaces the previous row.
	Upsert(ctx context.Context, rec *types.VulnerabilityRecord, vector []float32) error

	// Search returns the records nearest to the query vector, best first.
	// Failures are categorized; transient ones satisfy
	// types.IsTransientIndexError and the caller degrades per its chain.
	Search(ctx context.Context, queryVector []float32, filter *Filter, limit int) ([]VectorHit, error)

	// Scan enumerates up to limit records without ranking. Used by the
	// degraded lexical-overlap fallback when Search cannot run.
	Scan(ctx context.Context, limit int) ([]types.VulnerabilityRecord, error)
}

// KeywordIndex retrieves records by full-text relevance.
type KeywordIndex interface {
	// Search runs a weighted multi-field relevance query.
	Search(ctx context.Context, query string, filter *Filter, limit int) ([]KeywordHit, error)
}

// RecordStore provides identifier-based access to stored records.
type RecordStore interface {
	// GetByAlias returns the record carrying the exact alias, or
	// types.ErrNotFound.
	GetByAlias(ctx context.Context, alias string) (*types.VulnerabilityRecord, error)

	// GetByID returns the record whose canonical id matches exactly, or
	// types.ErrNotFound.
	GetByID(ctx context.Context, id string) (*types.VulnerabilityRecord, error)
}

// IndexStatus summarizes index contents and health.
type IndexStatus struct {
	Records         int
	Embeddings      int
	EcosystemCounts map[string]int
	LastUpdatedAt   time.Time

	DatabaseAccessible bool
	KeywordIndexBuilt  bool
	VectorIndexReady   bool
}

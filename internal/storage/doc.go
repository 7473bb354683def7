// Package storage persists vulnerability records and their embeddings in
// SQLite and exposes the two index views the search engine consumes: a
// VectorIndex (nearest-neighbor over embedding BLOBs, plus an unordered
// Scan for degraded mode) and a KeywordIndex (weighted BM25 full-text
// relevance via FTS5).
//
// Upserts are idempotent: each record is keyed by a deterministic UUIDv5
// of its identifier, so re-ingesting the same id overwrites rather than
// duplicates (last write wins).
//
// The keyword index is optional. When the FTS5 module cannot be
// provisioned, NewKeywordIndex reports types.ErrIndexUnavailable at
// construction and the engine runs vector-only.
package storage

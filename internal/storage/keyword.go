package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// keywordView exposes the FTS5 side of a SQLiteStore as a KeywordIndex.
// Only constructed when FTS5 was provisioned.
type keywordView SQLiteStore

// Column weights for bm25(): content carries the most signal, then
// summary, then details.
const ftsColumnWeights = "2.0, 1.5, 1.0"

// Search runs a weighted BM25 relevance query. Scores are returned
// positive, higher is better (FTS5 reports bm25() negated).
func (k *keywordView) Search(ctx context.Context, query string, filter *Filter, limit int) ([]KeywordHit, error) {
	if limit <= 0 {
		return []KeywordHit{}, nil
	}

	match := buildMatchQuery(query)
	if match == "" {
		return []KeywordHit{}, nil
	}

	sqlQuery := fmt.Sprintf(`
		SELECT v.payload, -bm25(vulns_fts, %s) AS score
		FROM vulns_fts
		INNER JOIN vulns v ON v.rowid = vulns_fts.rowid
		WHERE vulns_fts MATCH ?
	`, ftsColumnWeights)
	args := []interface{}{match}

	if !filter.Empty() {
		placeholders := make([]string, len(filter.Ecosystems))
		for i, eco := range filter.Ecosystems {
			placeholders[i] = "?"
			args = append(args, eco)
		}
		sqlQuery += " AND v.ecosystem IN (" + strings.Join(placeholders, ", ") + ")"
	}

	sqlQuery += " ORDER BY score DESC LIMIT ?"
	args = append(args, limit)

	rows, err := k.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: keyword query: %v", types.ErrIndexQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []KeywordHit
	for rows.Next() {
		var payload string
		var score float64
		if err := rows.Scan(&payload, &score); err != nil {
			return nil, fmt.Errorf("%w: keyword scan: %v", types.ErrIndexQueryFailed, err)
		}
		var rec types.VulnerabilityRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			k.log.WithError(err).Warn("skipping undecodable record payload")
			continue
		}
		hits = append(hits, KeywordHit{Record: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: keyword rows: %v", types.ErrIndexQueryFailed, err)
	}
	return hits, nil
}

// buildMatchQuery turns free text into an FTS5 MATCH expression. Each
// token becomes a prefix term so partial package names still match;
// tokens are quoted to neutralize FTS5 operators in user input.
func buildMatchQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !isTokenRune(r)
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " OR ")
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}

package search

import (
	"context"
	"sort"
	"strings"

	"github.com/osvquery/vulncontext-mcp/internal/storage"
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// Lexical heuristic weights for the scan fallback.
const (
	tokenOverlapWeight  = 0.5 // fraction of query tokens present in content
	packageMatchWeight  = 0.3 // any token is a substring of a package name
	ecosystemMatchBonus = 0.2 // any token appears in the ecosystem tag
)

// vectorStrategy is one rung of the degradation ladder. advance decides
// whether a failure of this rung moves the chain to the next one.
type vectorStrategy struct {
	method   Method
	degraded bool
	run      func(ctx context.Context) ([]storage.VectorHit, error)
	advance  func(err error) bool
}

// searchVectorDegrading walks the ordered strategy chain: filtered
// nearest-neighbor search, the same search without its filter, then a
// corpus scan scored by lexical overlap. A rung whose failure does not
// meet its advance condition still falls through to the scan, so adapter
// errors never reach the caller; only an exhausted chain yields the empty
// terminal outcome.
func (e *Engine) searchVectorDegrading(ctx context.Context, query string, vector []float32, filter *storage.Filter, fetch int) vectorOutcome {
	chain := []vectorStrategy{
		{
			method: MethodHybrid,
			run: func(ctx context.Context) ([]storage.VectorHit, error) {
				return e.vector.Search(ctx, vector, filter, fetch)
			},
			advance: types.IsTransientIndexError,
		},
		{
			method:   MethodVectorUnfiltered,
			degraded: true,
			run: func(ctx context.Context) ([]storage.VectorHit, error) {
				return e.vector.Search(ctx, vector, nil, fetch)
			},
			advance: types.IsTransientIndexError,
		},
		{
			method:   MethodLexicalScan,
			degraded: true,
			run: func(ctx context.Context) ([]storage.VectorHit, error) {
				return e.scanWithHeuristic(ctx, query, fetch)
			},
			advance: func(error) bool { return true },
		},
	}

	scanIdx := len(chain) - 1
	for i := 0; i < len(chain); i++ {
		strat := chain[i]
		hits, err := strat.run(ctx)
		if err == nil {
			return vectorOutcome{hits: hits, method: strat.method, degraded: strat.degraded}
		}
		if ctx.Err() != nil {
			return vectorOutcome{fatal: ctx.Err()}
		}
		e.log.WithError(err).WithField("strategy", string(strat.method)).
			Warn("vector strategy failed, degrading")
		if !strat.advance(err) && i < scanIdx {
			// Non-transient failure skips the retry rung and goes
			// straight to the scan.
			i = scanIdx - 1
		}
	}
	return vectorOutcome{method: MethodNone, degraded: true}
}

// scanWithHeuristic enumerates the corpus and scores each record by
// lexical overlap with the query. Zero-score records are kept only when
// fewer than fetch positive-score records exist, so the result set is
// never empty purely for lack of token overlap.
func (e *Engine) scanWithHeuristic(ctx context.Context, query string, fetch int) ([]storage.VectorHit, error) {
	records, err := e.vector.Scan(ctx, scanFallbackLimit)
	if err != nil {
		return nil, err
	}

	tokens := queryTokens(query)
	var positive, zero []storage.VectorHit
	for _, rec := range records {
		score := lexicalScore(tokens, &rec)
		hit := storage.VectorHit{Record: rec, Score: score}
		if score > 0 {
			positive = append(positive, hit)
		} else {
			zero = append(zero, hit)
		}
	}

	sort.SliceStable(positive, func(i, j int) bool {
		if positive[i].Score != positive[j].Score {
			return positive[i].Score > positive[j].Score
		}
		return positive[i].Record.ID < positive[j].Record.ID
	})

	hits := positive
	if len(hits) < fetch {
		need := fetch - len(hits)
		if need > len(zero) {
			need = len(zero)
		}
		hits = append(hits, zero[:need]...)
	}
	if len(hits) > fetch {
		hits = hits[:fetch]
	}
	return hits, nil
}

// lexicalScore is the degraded-mode relevance heuristic: token overlap
// with content carries half the weight, a package-name substring match
// 0.3, and an ecosystem-tag match 0.2.
func lexicalScore(tokens []string, rec *types.VulnerabilityRecord) float64 {
	if len(tokens) == 0 {
		return 0
	}

	content := strings.ToLower(rec.Content)
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(content, tok) {
			matched++
		}
	}
	score := tokenOverlapWeight * float64(matched) / float64(len(tokens))

	pkgNames := rec.PackageNames()
	for _, tok := range tokens {
		hit := false
		for _, name := range pkgNames {
			if strings.Contains(strings.ToLower(name), tok) {
				hit = true
				break
			}
		}
		if hit {
			score += packageMatchWeight
			break
		}
	}

	eco := strings.ToLower(rec.Ecosystem)
	for _, tok := range tokens {
		if strings.Contains(eco, tok) {
			score += ecosystemMatchBonus
			break
		}
	}
	return score
}

// queryTokens lower-cases and splits a query into alphanumeric tokens.
func queryTokens(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return false
		case r == '-' || r == '_' || r == '.':
			return false
		}
		return true
	})
}

package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/osvquery/vulncontext-mcp/internal/embedder"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

const (
	// DefaultVectorWeight and DefaultBM25Weight control score fusion.
	DefaultVectorWeight = 0.7
	DefaultBM25Weight   = 0.3

	// bm25ScaleDivisor levels BM25 scores (unbounded) against cosine
	// similarity (bounded in [0,1] for unit vectors). Empirical.
	bm25ScaleDivisor = 10.0

	// DefaultLimit and MaxLimit bound result counts per search.
	DefaultLimit = 10
	MaxLimit     = 100

	// scanFallbackLimit caps corpus enumeration in degraded mode.
	scanFallbackLimit = 500

	// queryCacheSize is the LRU entry limit for cached responses.
	queryCacheSize = 1000

	// DefaultCacheTTL is how long a cached response stays valid.
	DefaultCacheTTL = 5 * time.Minute
)

// Method identifies which retrieval path produced a response.
type Method string

const (
	MethodHybrid           Method = "hybrid"            // vector + keyword fused
	MethodVectorOnly       Method = "vector_only"       // keyword index unavailable
	MethodVectorUnfiltered Method = "vector_unfiltered" // filter dropped after transient failure
	MethodLexicalScan      Method = "lexical_scan"      // scan + token-overlap heuristic
	MethodNone             Method = "none"              // every strategy exhausted
)

// Request is one search invocation.
type Request struct {
	Query      string
	Ecosystems []string
	Limit      int

	// VectorWeight and BM25Weight default to 0.7/0.3 when zero.
	VectorWeight float64
	BM25Weight   float64

	UseCache bool
	CacheTTL time.Duration
}

// Response is a ranked, fused result set plus retrieval metadata.
type Response struct {
	Results    []types.SearchResult `json:"results"`
	TotalFound int                  `json:"total_found"`

	// Degraded reports whether a lower-quality retrieval path ran.
	Degraded bool   `json:"degraded"`
	Method   Method `json:"search_method"`

	ExtractedEntities Entities  `json:"extracted_entities"`
	Timestamp         time.Time `json:"timestamp"`

	CacheHit bool          `json:"cache_hit,omitempty"`
	Duration time.Duration `json:"-"`
}

// cacheEntry is a cached response with its expiry.
type cacheEntry struct {
	response  Response
	expiresAt time.Time
}

// Engine coordinates embedding, vector retrieval and keyword retrieval.
// Safe for concurrent use; the indices are read-only on this path.
type Engine struct {
	vector   storage.VectorIndex
	keyword  storage.KeywordIndex // nil when the index was never provisioned
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	log      *logrus.Entry
}

// NewEngine creates a search engine. keyword may be nil; the engine then
// runs vector-only, which is a valid permanent state.
func NewEngine(vector storage.VectorIndex, keyword storage.KeywordIndex, emb embedder.Embedder, log *logrus.Entry) *Engine {
	cache, err := lru.New[[32]byte, *cacheEntry](queryCacheSize)
	if err != nil {
		// Only possible with a non-positive size constant.
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Engine{
		vector:   vector,
		keyword:  keyword,
		embedder: emb,
		cache:    cache,
		log:      log,
	}
}

// KeywordAvailable reports whether the keyword index is wired in.
func (e *Engine) KeywordAvailable() bool {
	return e.keyword != nil
}

// Search runs a hybrid search. Embedding failure is fatal for the whole
// call; index failures degrade per the strategy chain instead.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.VectorWeight == 0 && req.BM25Weight == 0 {
		req.VectorWeight = DefaultVectorWeight
		req.BM25Weight = DefaultBM25Weight
	}

	if req.UseCache {
		if cached, ok := e.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	filter := &storage.Filter{Ecosystems: req.Ecosystems}
	fetch := req.Limit * 2

	// Keyword and vector paths are independent; run them concurrently.
	keywordChan := make(chan keywordOutcome, 1)
	vectorChan := make(chan vectorOutcome, 1)
	go e.runKeywordPath(ctx, req.Query, filter, fetch, keywordChan)
	go e.runVectorPath(ctx, req.Query, filter, fetch, vectorChan)

	var kw keywordOutcome
	var vec vectorOutcome
	for done := 0; done < 2; {
		select {
		case kw = <-keywordChan:
			done++
		case vec = <-vectorChan:
			done++
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if vec.fatal != nil {
		return nil, vec.fatal
	}

	results := fuseResults(vec.hits, kw.hits, req.VectorWeight, req.BM25Weight)

	// Re-apply the ecosystem filter after fusion. Degraded paths may have
	// dropped the adapter-level filter.
	if !filter.Empty() {
		filtered := results[:0]
		for _, r := range results {
			if filter.Matches(&r.Record) {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	// A provisioned keyword index failing at query time is a degraded
	// response; only a never-provisioned index makes vector-only normal.
	degraded := vec.degraded || (e.keyword != nil && kw.err != nil)

	resp := &Response{
		Results:           results,
		TotalFound:        len(results),
		Degraded:          degraded,
		Method:            e.resolveMethod(vec, kw),
		ExtractedEntities: ExtractEntities(req.Query),
		Timestamp:         time.Now().UTC(),
		Duration:          time.Since(start),
	}

	// Degraded responses are not cached; the next call should probe the
	// healthy path again.
	if req.UseCache && !resp.Degraded {
		e.storeInCache(req, resp)
	}
	return resp, nil
}

// resolveMethod names the retrieval path that produced the response.
func (e *Engine) resolveMethod(vec vectorOutcome, kw keywordOutcome) Method {
	if vec.method != MethodHybrid {
		return vec.method
	}
	if e.keyword == nil || kw.err != nil {
		return MethodVectorOnly
	}
	return MethodHybrid
}

type keywordOutcome struct {
	hits []storage.KeywordHit
	err  error
}

// runKeywordPath executes the BM25 side. Failure here is never fatal;
// the engine simply fuses with an empty keyword set.
func (e *Engine) runKeywordPath(ctx context.Context, query string, filter *storage.Filter, fetch int, out chan<- keywordOutcome) {
	var res keywordOutcome
	if e.keyword != nil {
		res.hits, res.err = e.keyword.Search(ctx, query, filter, fetch)
		if res.err != nil {
			e.log.WithError(res.err).Warn("keyword search failed, fusing vector-only")
			res.hits = nil
		}
	}
	select {
	case out <- res:
	case <-ctx.Done():
	}
}

type vectorOutcome struct {
	hits     []storage.VectorHit
	method   Method
	degraded bool
	fatal    error
}

// runVectorPath embeds the query and walks the vector degradation chain.
func (e *Engine) runVectorPath(ctx context.Context, query string, filter *storage.Filter, fetch int, out chan<- vectorOutcome) {
	var res vectorOutcome
	embedding, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		// No degraded embedding path exists; the whole search fails.
		res.fatal = fmt.Errorf("failed to generate query embedding: %w", err)
	} else {
		res = e.searchVectorDegrading(ctx, query, embedding.Vector, filter, fetch)
	}
	select {
	case out <- res:
	case <-ctx.Done():
	}
}

// fuseResults merges the two ranked lists. BM25 scores are divided by 10
// to level them against cosine similarity; a document missing from one
// source scores 0 for that source. Ordering is deterministic: combined
// score descending, ties broken by ascending id.
func fuseResults(vectorHits []storage.VectorHit, keywordHits []storage.KeywordHit, vectorWeight, bm25Weight float64) []types.SearchResult {
	byID := make(map[string]*types.SearchResult)
	order := make([]string, 0, len(vectorHits)+len(keywordHits))

	for _, vh := range vectorHits {
		r := &types.SearchResult{Record: vh.Record, SimilarityScore: vh.Score}
		byID[vh.Record.ID] = r
		order = append(order, vh.Record.ID)
	}
	for _, kh := range keywordHits {
		if existing, ok := byID[kh.Record.ID]; ok {
			existing.BM25Score = kh.Score
			continue
		}
		r := &types.SearchResult{Record: kh.Record, BM25Score: kh.Score}
		byID[kh.Record.ID] = r
		order = append(order, kh.Record.ID)
	}

	results := make([]types.SearchResult, 0, len(order))
	for _, id := range order {
		r := byID[id]
		r.CombinedScore = vectorWeight*r.SimilarityScore + bm25Weight*(r.BM25Score/bm25ScaleDivisor)
		results = append(results, *r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].Record.ID < results[j].Record.ID
	})
	return results
}

// cacheKey hashes the request fields that determine the result set.
func cacheKey(req Request) [32]byte {
	h := sha256.New()
	h.Write([]byte(req.Query))
	h.Write([]byte{0})
	for _, eco := range req.Ecosystems {
		h.Write([]byte(eco))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "%d|%g|%g", req.Limit, req.VectorWeight, req.BM25Weight)
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func (e *Engine) checkCache(req Request) (*Response, bool) {
	entry, ok := e.cache.Get(cacheKey(req))
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		e.cache.Remove(cacheKey(req))
		return nil, false
	}
	resp := entry.response
	return &resp, true
}

func (e *Engine) storeInCache(req Request, resp *Response) {
	ttl := req.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	e.cache.Add(cacheKey(req), &cacheEntry{
		response:  *resp,
		expiresAt: time.Now().Add(ttl),
	})
}

// Manual smoke check for the embed-ingest-search path. Runs entirely
// in-process with a mock embedder and an in-memory database; useful when
// debugging pipeline changes without a live embedding backend.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/osvquery/vulncontext-mcp/internal/embedder"
	"github.com/osvquery/vulncontext-mcp/internal/ingest"
	"github.com/osvquery/vulncontext-mcp/internal/search"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
)

const sampleAdvisory = `{
	"id": "GHSA-jf85-cpcp-j695",
	"aliases": ["CVE-2019-10744"],
	"summary": "Prototype pollution in lodash",
	"details": "Versions of lodash before 4.17.12 are vulnerable to prototype pollution. The function defaultsDeep allows a malicious user to modify the prototype of Object.",
	"published": "2019-07-18T00:00:00Z",
	"affected": [{
		"package": {"ecosystem": "npm", "name": "lodash"},
		"ranges": [{"type": "SEMVER", "events": [{"introduced": "0"}, {"fixed": "4.17.12"}]}]
	}]
}`

func main() {
	fmt.Println("Testing embedding integration...")

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logEntry := logrus.NewEntry(logger)

	tmpDir, err := os.MkdirTemp("", "vulncontext-test-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	advisoryPath := filepath.Join(tmpDir, "lodash.json")
	if err := os.WriteFile(advisoryPath, []byte(sampleAdvisory), 0644); err != nil {
		log.Fatalf("Failed to write advisory fixture: %v", err)
	}

	store, err := storage.Open(":memory:", logEntry)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	mockEmb := embedder.NewMockProvider(384)

	pipe := ingest.NewPipeline(store, mockEmb, logEntry)

	ctx := context.Background()
	stats, err := pipe.IngestDirectory(ctx, tmpDir, "")
	if err != nil {
		log.Fatalf("Failed to ingest advisories: %v", err)
	}

	fmt.Printf("\nIngestion Statistics:\n")
	fmt.Printf("  Loaded: %d\n", stats.Loaded)
	fmt.Printf("  Skipped: %d\n", stats.Skipped)
	fmt.Printf("  Upserted: %d\n", stats.Upserted)
	fmt.Printf("  Failed: %d\n", stats.Failed)

	keyword, err := store.NewKeywordIndex()
	if err != nil {
		fmt.Printf("\nKeyword index unavailable, vector-only mode: %v\n", err)
	}

	engine := search.NewEngine(store, keyword, mockEmb, logEntry)
	resp, err := engine.Search(ctx, search.Request{
		Query:    "prototype pollution in lodash",
		Limit:    5,
		UseCache: false,
	})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Printf("\nSearch Results (method=%s, degraded=%v):\n", resp.Method, resp.Degraded)
	for i, result := range resp.Results {
		fmt.Printf("  %d. %s (combined=%.4f, similarity=%.4f, bm25=%.4f)\n",
			i+1, result.Record.ID, result.CombinedScore, result.SimilarityScore, result.BM25Score)
	}

	lookup := search.NewLookup(store)
	rec, err := lookup.GetByID(ctx, "CVE-2019-10744")
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}
	if rec == nil {
		log.Fatal("Alias lookup returned no record")
	}
	fmt.Printf("\nAlias lookup CVE-2019-10744 -> %s (%s)\n", rec.ID, rec.Ecosystem)

	fmt.Println("\nEmbedding integration test complete.")
}

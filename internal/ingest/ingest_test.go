package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osvquery/vulncontext-mcp/internal/embedder"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.Open(":memory:", testLog())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const lodashDoc = `{
	"id": "GHSA-jf85-cpcp-j695",
	"aliases": ["CVE-2019-10744"],
	"summary": "Prototype pollution in lodash",
	"details": "Versions of lodash before 4.17.12 are vulnerable to prototype pollution.",
	"published": "2019-07-18T00:00:00Z",
	"modified": "2023-01-30T00:00:00Z",
	"affected": [{
		"package": {"ecosystem": "npm", "name": "lodash"},
		"ranges": [{"type": "SEMVER", "events": [{"introduced": "0"}, {"fixed": "4.17.12"}]}]
	}],
	"references": [{"type": "ADVISORY", "url": "https://nvd.nist.gov/vuln/detail/CVE-2019-10744"}]
}`

const requestsDoc = `{
	"id": "PYSEC-2023-74",
	"aliases": ["CVE-2023-32681"],
	"summary": "Unintended leak of Proxy-Authorization header in requests",
	"details": "Requests forwards Proxy-Authorization headers to destination servers during redirects.",
	"published": "2023-05-26T18:15:00Z",
	"affected": [{
		"package": {"ecosystem": "PyPI", "name": "requests"},
		"ranges": [{"type": "ECOSYSTEM", "events": [{"introduced": "2.3.0"}, {"fixed": "2.31.0"}]}]
	}]
}`

const withdrawnDoc = `{
	"id": "GHSA-with-draw-0001",
	"summary": "Erroneously published advisory",
	"withdrawn": "2024-01-01T00:00:00Z"
}`

func TestBuildContent(t *testing.T) {
	tests := []struct {
		name string
		rec  types.VulnerabilityRecord
		want string
	}{
		{
			name: "all sections",
			rec: types.VulnerabilityRecord{
				Summary: "Prototype pollution in lodash",
				Details: "defaultsDeep allows __proto__ modification.",
				Affected: []types.AffectedPackage{
					{Package: types.Package{Name: "lodash", Ecosystem: "npm"}},
					{Package: types.Package{Name: "lodash.merge", Ecosystem: "npm"}},
				},
			},
			want: "Summary: Prototype pollution in lodash\n\n" +
				"Details: defaultsDeep allows __proto__ modification.\n\n" +
				"Affects: lodash, lodash.merge",
		},
		{
			name: "summary only",
			rec:  types.VulnerabilityRecord{Summary: "Heap overflow"},
			want: "Summary: Heap overflow",
		},
		{
			name: "empty record",
			rec:  types.VulnerabilityRecord{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildContent(&tt.rec))
		})
	}
}

func TestParseOSV(t *testing.T) {
	doc, err := parseOSV([]byte(lodashDoc))
	require.NoError(t, err)
	assert.Equal(t, "GHSA-jf85-cpcp-j695", doc.ID)
	assert.Equal(t, []string{"CVE-2019-10744"}, doc.Aliases)

	_, err = parseOSV([]byte(`{"summary": "no id"}`))
	require.Error(t, err)

	_, err = parseOSV([]byte(`{not json`))
	require.Error(t, err)
}

func TestToRecordEcosystemPrecedence(t *testing.T) {
	doc, err := parseOSV([]byte(lodashDoc))
	require.NoError(t, err)

	// The document's own package ecosystem wins over the feed tag.
	rec := doc.toRecord("")
	assert.Equal(t, "npm", rec.Ecosystem)

	rec = doc.toRecord("Debian")
	assert.Equal(t, "Debian", rec.Ecosystem)
}

func TestToRecordShape(t *testing.T) {
	doc, err := parseOSV([]byte(lodashDoc))
	require.NoError(t, err)
	rec := doc.toRecord("")

	require.Len(t, rec.Affected, 1)
	assert.Equal(t, "lodash", rec.Affected[0].Package.Name)
	require.Len(t, rec.Affected[0].Ranges, 1)
	assert.Equal(t, "SEMVER", rec.Affected[0].Ranges[0].Type)
	require.Len(t, rec.Affected[0].Ranges[0].Events, 2)
	assert.Equal(t, "4.17.12", rec.Affected[0].Ranges[0].Events[1].Fixed)
	require.Len(t, rec.References, 1)
	assert.Equal(t, 2019, rec.Published.Year())
	assert.Contains(t, rec.Content, "Summary: Prototype pollution in lodash")
	assert.Contains(t, rec.Content, "Affects: lodash")
	assert.NotContains(t, rec.Content, "CVE-2019-10744",
		"identifiers must stay out of the embedded text")
}

func TestParseOSVTimeLenient(t *testing.T) {
	assert.True(t, parseOSVTime("").IsZero())
	assert.True(t, parseOSVTime("yesterday").IsZero())
	assert.Equal(t, 2023, parseOSVTime("2023-05-26T18:15:00Z").Year())
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "lodash.json", lodashDoc)
	writeFixture(t, dir, "requests.json", requestsDoc)
	writeFixture(t, dir, "withdrawn.json", withdrawnDoc)
	writeFixture(t, dir, "broken.json", `{not json`)
	writeFixture(t, dir, "notes.txt", "not an advisory")

	store := testStore(t)
	pipe := NewPipeline(store, embedder.NewMockProvider(8), testLog())

	stats, err := pipe.IngestDirectory(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 2, stats.Skipped, "withdrawn and malformed documents are skipped")
	assert.Equal(t, 2, stats.Upserted)
	assert.Equal(t, 0, stats.Failed)

	rec, err := store.GetByID(context.Background(), "GHSA-jf85-cpcp-j695")
	require.NoError(t, err)
	assert.Equal(t, "npm", rec.Ecosystem)

	rec, err = store.GetByAlias(context.Background(), "CVE-2023-32681")
	require.NoError(t, err)
	assert.Equal(t, "PYSEC-2023-74", rec.ID)
}

func TestIngestDirectoryIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "lodash.json", lodashDoc)

	store := testStore(t)
	pipe := NewPipeline(store, embedder.NewMockProvider(8), testLog())
	ctx := context.Background()

	_, err := pipe.IngestDirectory(ctx, dir, "")
	require.NoError(t, err)
	_, err = pipe.IngestDirectory(ctx, dir, "")
	require.NoError(t, err)

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Records, "re-running the feed must not duplicate records")
}

func TestIngestRecordsBatchFailureIsNotFatal(t *testing.T) {
	broken := embedder.NewMockProvider(8)
	broken.FailWith = errors.New("provider down")

	store := testStore(t)
	pipe := NewPipeline(store, broken, testLog())

	doc, err := parseOSV([]byte(lodashDoc))
	require.NoError(t, err)
	stats := &Stats{}
	err = pipe.IngestRecords(context.Background(), []*types.VulnerabilityRecord{doc.toRecord("")}, stats)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Upserted)
	require.NotEmpty(t, stats.ErrorMessages)
	assert.Contains(t, stats.ErrorMessages[0], "batch embed")
}

func TestIngestRecordsCanceledContext(t *testing.T) {
	broken := embedder.NewMockProvider(8)
	broken.FailWith = errors.New("provider down")

	store := testStore(t)
	pipe := NewPipeline(store, broken, testLog())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := parseOSV([]byte(lodashDoc))
	require.NoError(t, err)
	err = pipe.IngestRecords(ctx, []*types.VulnerabilityRecord{doc.toRecord("")}, &Stats{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatsErrorReportingBounded(t *testing.T) {
	stats := &Stats{}
	for i := 0; i < 10; i++ {
		stats.recordError("failure")
	}
	assert.Len(t, stats.ErrorMessages, maxReportedErrors)
}

package storage

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := Open(":memory:", logrus.NewEntry(logger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(id, ecosystem, content string) *types.VulnerabilityRecord {
	return &types.VulnerabilityRecord{
		ID:        id,
		Ecosystem: ecosystem,
		Summary:   "summary of " + id,
		Details:   "details of " + id,
		Content:   content,
		Published: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}

func TestRecordKeyDeterministic(t *testing.T) {
	assert.Equal(t, RecordKey("CVE-2024-3094"), RecordKey("CVE-2024-3094"))
	assert.NotEqual(t, RecordKey("CVE-2024-3094"), RecordKey("CVE-2024-3095"))
}

func TestUpsertIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := testRecord("CVE-2024-0001", "npm", "first content")
	require.NoError(t, store.Upsert(ctx, rec, unitVector(8, 0)))

	rec.Content = "second content"
	require.NoError(t, store.Upsert(ctx, rec, unitVector(8, 1)))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Records, "same id must overwrite, not duplicate")

	got, err := store.GetByID(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, "second content", got.Content)
}

func TestGetByIDAndAlias(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := testRecord("GHSA-jfh8-c2jp-5v3q", "Maven", "log4shell")
	rec.Aliases = []string{"CVE-2021-44228"}
	require.NoError(t, store.Upsert(ctx, rec, nil))

	byID, err := store.GetByID(ctx, "GHSA-jfh8-c2jp-5v3q")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byID.ID)
	assert.True(t, byID.HasAlias("CVE-2021-44228"))

	byAlias, err := store.GetByAlias(ctx, "CVE-2021-44228")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byAlias.ID)

	_, err = store.GetByID(ctx, "CVE-2024-99999")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = store.GetByAlias(ctx, "CVE-2024-99999")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpsertRewritesAliases(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := testRecord("CVE-2024-0002", "npm", "content")
	rec.Aliases = []string{"GHSA-aaaa-bbbb-cccc"}
	require.NoError(t, store.Upsert(ctx, rec, nil))

	rec.Aliases = []string{"GHSA-dddd-eeee-ffff"}
	require.NoError(t, store.Upsert(ctx, rec, nil))

	_, err := store.GetByAlias(ctx, "GHSA-aaaa-bbbb-cccc")
	assert.ErrorIs(t, err, types.ErrNotFound, "stale alias must be removed")

	got, err := store.GetByAlias(ctx, "GHSA-dddd-eeee-ffff")
	require.NoError(t, err)
	assert.Equal(t, "CVE-2024-0002", got.ID)
}

func TestVectorSearchRanksByCosine(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Vectors at decreasing similarity to the query direction.
	query := []float32{1, 0, 0, 0}
	vectors := map[string][]float32{
		"CVE-2024-0001": {1, 0, 0, 0},   // similarity 1.0
		"CVE-2024-0002": {1, 1, 0, 0},   // ~0.707
		"CVE-2024-0003": {0.2, 1, 1, 1}, // low
		"CVE-2024-0004": {0, 1, 0, 0},   // orthogonal
	}
	for id, v := range vectors {
		require.NoError(t, store.Upsert(ctx, testRecord(id, "npm", "content "+id), v))
	}

	hits, err := store.Search(ctx, query, nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, "CVE-2024-0001", hits[0].Record.ID)
	assert.Equal(t, "CVE-2024-0002", hits[1].Record.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, hits[1].Score, 1e-6)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestVectorSearchHonorsFilter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testRecord("CVE-2024-0001", "npm", "a"), unitVector(4, 0)))
	require.NoError(t, store.Upsert(ctx, testRecord("CVE-2024-0002", "PyPI", "b"), unitVector(4, 0)))
	require.NoError(t, store.Upsert(ctx, testRecord("CVE-2024-0003", "npm", "c"), unitVector(4, 1)))

	hits, err := store.Search(ctx, unitVector(4, 0), &Filter{Ecosystems: []string{"npm"}}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "npm", h.Record.Ecosystem)
	}
}

func TestVectorSearchDimensionMismatch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testRecord("CVE-2024-0001", "npm", "a"), unitVector(8, 0)))

	_, err := store.Search(ctx, unitVector(4, 0), nil, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	assert.True(t, types.IsTransientIndexError(err),
		"dimension mismatch must trigger the degradation chain")
}

func TestScan(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"CVE-2024-0001", "CVE-2024-0002", "CVE-2024-0003"} {
		require.NoError(t, store.Upsert(ctx, testRecord(id, "npm", "content"), nil))
	}

	records, err := store.Scan(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.Scan(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestKeywordSearch(t *testing.T) {
	store := testStore(t)
	if !store.FTSAvailable() {
		t.Skip("FTS5 not available in this build")
	}
	ctx := context.Background()

	lodash := testRecord("GHSA-p6mc-m468-83gw", "npm", "Summary: Prototype Pollution in lodash\n\nDetails: merge functions allow property injection")
	lodash.Summary = "Prototype Pollution in lodash"
	django := testRecord("PYSEC-2024-0001", "PyPI", "Summary: SQL injection in django\n\nDetails: ORM filter bypass")
	django.Summary = "SQL injection in django"
	require.NoError(t, store.Upsert(ctx, lodash, nil))
	require.NoError(t, store.Upsert(ctx, django, nil))

	kw, err := store.NewKeywordIndex()
	require.NoError(t, err)

	hits, err := kw.Search(ctx, "prototype pollution", nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "GHSA-p6mc-m468-83gw", hits[0].Record.ID)
	assert.Greater(t, hits[0].Score, 0.0, "scores are positive, higher is better")

	hits, err = kw.Search(ctx, "django", &Filter{Ecosystems: []string{"npm"}}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "filter must exclude other ecosystems")
}

func TestKeywordSearchPrefixMatching(t *testing.T) {
	store := testStore(t)
	if !store.FTSAvailable() {
		t.Skip("FTS5 not available in this build")
	}
	ctx := context.Background()

	rec := testRecord("CVE-2024-0001", "npm", "Summary: deserialization vulnerability in jackson-databind")
	require.NoError(t, store.Upsert(ctx, rec, nil))

	kw, err := store.NewKeywordIndex()
	require.NoError(t, err)

	hits, err := kw.Search(ctx, "deserial", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1, "tokens match by prefix")
}

func TestKeywordSearchUpdateKeepsIndexInSync(t *testing.T) {
	store := testStore(t)
	if !store.FTSAvailable() {
		t.Skip("FTS5 not available in this build")
	}
	ctx := context.Background()

	rec := testRecord("CVE-2024-0001", "npm", "Summary: original wording")
	require.NoError(t, store.Upsert(ctx, rec, nil))

	rec.Content = "Summary: replacement wording"
	require.NoError(t, store.Upsert(ctx, rec, nil))

	kw, err := store.NewKeywordIndex()
	require.NoError(t, err)

	hits, err := kw.Search(ctx, "original", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "old content must leave the index on update")

	hits, err = kw.Search(ctx, "replacement", nil, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestKeywordSearchColumnWeighting(t *testing.T) {
	store := testStore(t)
	if !store.FTSAvailable() {
		t.Skip("FTS5 not available in this build")
	}
	ctx := context.Background()

	inContent := testRecord("CVE-2024-0100", "npm", "Summary: buffer overflow in image decoder")
	inContent.Summary = "unrelated title"
	inContent.Details = "unrelated body"
	inDetails := testRecord("CVE-2024-0101", "npm", "Summary: unrelated advisory text")
	inDetails.Summary = "unrelated title"
	inDetails.Details = "mentions a buffer overflow in passing"
	require.NoError(t, store.Upsert(ctx, inContent, nil))
	require.NoError(t, store.Upsert(ctx, inDetails, nil))

	kw, err := store.NewKeywordIndex()
	require.NoError(t, err)

	hits, err := kw.Search(ctx, "buffer overflow", nil, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "CVE-2024-0100", hits[0].Record.ID,
		"a content hit outranks a details hit")
}

func TestStatus(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.DatabaseAccessible)
	assert.Zero(t, status.Records)
	assert.False(t, status.VectorIndexReady)

	require.NoError(t, store.Upsert(ctx, testRecord("CVE-2024-0001", "npm", "a"), unitVector(4, 0)))
	require.NoError(t, store.Upsert(ctx, testRecord("CVE-2024-0002", "PyPI", "b"), nil))

	status, err = store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Records)
	assert.Equal(t, 1, status.Embeddings)
	assert.True(t, status.VectorIndexReady)
	assert.Equal(t, 1, status.EcosystemCounts["npm"])
	assert.Equal(t, 1, status.EcosystemCounts["PyPI"])
	assert.False(t, status.LastUpdatedAt.IsZero())
}

func TestCoerceStoredTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	// The pure-Go driver hands timestamps back as strings, the cgo driver
	// as time.Time; both must decode.
	assert.Equal(t, want, coerceStoredTime(want))
	assert.Equal(t, want, coerceStoredTime("2024-03-01T12:30:00Z").UTC())
	assert.Equal(t, want, coerceStoredTime([]byte("2024-03-01 12:30:00")).UTC())
	assert.True(t, coerceStoredTime(nil).IsZero())
	assert.True(t, coerceStoredTime("not a timestamp").IsZero())
}

func TestVectorCodecRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 1.0, 0, 3.14159}
	decoded, err := deserializeVector(serializeVector(original))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	_, err = deserializeVector([]byte{1, 2, 3})
	assert.Error(t, err, "truncated blob must be rejected")
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{1, 0}
	zero := []float32{0, 0}

	assert.InDelta(t, 0.0, cosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, 1.0, cosineSimilarity(a, c), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity(a, zero))
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "Simple", query: "prototype pollution", want: `"prototype"* OR "pollution"*`},
		{name: "OperatorInjectionNeutralized", query: `lodash" OR "x`, want: `"lodash"* OR "OR"* OR "x"*`},
		{name: "HyphenatedTokenKept", query: "jackson-databind", want: `"jackson-databind"*`},
		{name: "Empty", query: "   ", want: ""},
		{name: "Punctuation", query: "what's up?", want: `"what"* OR "s"* OR "up"*`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMatchQuery(tt.query))
		})
	}
}

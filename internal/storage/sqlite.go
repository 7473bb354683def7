package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// recordNamespace is the UUIDv5 namespace for deriving stable point keys
// from vulnerability identifiers.
var recordNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// RecordKey derives the deterministic storage key for a vulnerability id.
// The same id always maps to the same key, which is what makes upserts
// idempotent.
func RecordKey(vulnID string) string {
	return uuid.NewSHA1(recordNamespace, []byte("vuln:"+vulnID)).String()
}

// SQLiteStore implements RecordStore, VectorIndex and KeywordIndex backing
// over a single SQLite database.
type SQLiteStore struct {
	db           *sql.DB
	ftsAvailable bool
	log          *logrus.Entry
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open creates a SQLite-backed store at dbPath, applying migrations and
// probing FTS5 availability. A store without FTS5 is fully usable for
// vector search and lookup; only the keyword index is absent.
func Open(dbPath string, log *logrus.Entry) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	ftsAvailable := true
	if err := applyFTSSchema(context.Background(), db); err != nil {
		ftsAvailable = false
		log.WithError(err).Warn("keyword index unavailable, continuing vector-only")
	}

	return &SQLiteStore{db: db, ftsAvailable: ftsAvailable, log: log}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FTSAvailable reports whether the keyword index was provisioned.
func (s *SQLiteStore) FTSAvailable() bool {
	return s.ftsAvailable
}

// NewKeywordIndex returns the keyword view of the store, or
// types.ErrIndexUnavailable when FTS5 could not be provisioned. Callers
// treat that as a valid, permanent state.
func (s *SQLiteStore) NewKeywordIndex() (KeywordIndex, error) {
	if !s.ftsAvailable {
		return nil, fmt.Errorf("%w: FTS5 not provisioned", types.ErrIndexUnavailable)
	}
	return (*keywordView)(s), nil
}

// Upsert writes a record and its embedding, replacing any previous row
// under the same identifier. Aliases are rewritten wholesale.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *types.VulnerabilityRecord, vector []float32) error {
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	key := RecordKey(rec.ID)
	var blob []byte
	var dimension sql.NullInt64
	if len(vector) > 0 {
		blob = serializeVector(vector)
		dimension = sql.NullInt64{Int64: int64(len(vector)), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vulns (key, vuln_id, ecosystem, summary, details, content,
		                   published, modified, payload, embedding, dimension, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			ecosystem = excluded.ecosystem,
			summary = excluded.summary,
			details = excluded.details,
			content = excluded.content,
			published = excluded.published,
			modified = excluded.modified,
			payload = excluded.payload,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`, key, rec.ID, rec.Ecosystem, rec.Summary, rec.Details, rec.Content,
		nullableTime(rec.Published), nullableTime(rec.Modified), string(payload),
		blob, dimension, now, now)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM vuln_aliases WHERE vuln_key = ?", key); err != nil {
		return fmt.Errorf("clear aliases for %s: %w", rec.ID, err)
	}
	for _, alias := range rec.Aliases {
		if alias == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO vuln_aliases (alias, vuln_key) VALUES (?, ?)", alias, key); err != nil {
			return fmt.Errorf("insert alias %s for %s: %w", alias, rec.ID, err)
		}
	}

	return tx.Commit()
}

// GetByAlias returns the record carrying the exact alias.
func (s *SQLiteStore) GetByAlias(ctx context.Context, alias string) (*types.VulnerabilityRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT v.payload FROM vulns v
		JOIN vuln_aliases a ON a.vuln_key = v.key
		WHERE a.alias = ?
		LIMIT 1
	`, alias)
	return scanRecord(row)
}

// GetByID returns the record whose canonical id matches exactly.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*types.VulnerabilityRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT payload FROM vulns WHERE vuln_id = ? LIMIT 1", id)
	return scanRecord(row)
}

// Scan enumerates up to limit records without ranking.
func (s *SQLiteStore) Scan(ctx context.Context, limit int) ([]types.VulnerabilityRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM vulns LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %v", types.ErrIndexQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var records []types.VulnerabilityRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", types.ErrIndexQueryFailed, err)
		}
		var rec types.VulnerabilityRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			s.log.WithError(err).Warn("skipping undecodable record payload")
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Status reports index contents and health.
func (s *SQLiteStore) Status(ctx context.Context) (*IndexStatus, error) {
	status := &IndexStatus{
		EcosystemCounts:   make(map[string]int),
		KeywordIndexBuilt: s.ftsAvailable,
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vulns").Scan(&status.Records); err != nil {
		return status, fmt.Errorf("count records: %w", err)
	}
	status.DatabaseAccessible = true

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vulns WHERE embedding IS NOT NULL").Scan(&status.Embeddings); err != nil {
		return status, fmt.Errorf("count embeddings: %w", err)
	}
	status.VectorIndexReady = status.Embeddings > 0

	rows, err := s.db.QueryContext(ctx, "SELECT ecosystem, COUNT(*) FROM vulns GROUP BY ecosystem")
	if err != nil {
		return status, fmt.Errorf("count ecosystems: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var eco string
		var n int
		if err := rows.Scan(&eco, &n); err != nil {
			return status, err
		}
		status.EcosystemCounts[eco] = n
	}

	// MAX() strips the column's type affinity, so the drivers disagree on
	// the value type. Select the raw column and coerce whatever comes back.
	var updated interface{}
	err = s.db.QueryRowContext(ctx,
		"SELECT updated_at FROM vulns ORDER BY updated_at DESC LIMIT 1").Scan(&updated)
	if err != nil && err != sql.ErrNoRows {
		return status, fmt.Errorf("read last update time: %w", err)
	}
	status.LastUpdatedAt = coerceStoredTime(updated)

	return status, rows.Err()
}

// storedTimeLayouts covers the timestamp encodings the two SQLite
// drivers produce for bound time.Time values.
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func coerceStoredTime(raw interface{}) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		return parseStoredTime(v)
	case []byte:
		return parseStoredTime(string(v))
	}
	return time.Time{}
}

func parseStoredTime(s string) time.Time {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func scanRecord(row *sql.Row) (*types.VulnerabilityRecord, error) {
	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec types.VulnerabilityRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}
	return &rec, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Vulnerability records. key is a deterministic UUIDv5 of vuln_id so
-- re-ingesting the same identifier overwrites in place.
CREATE TABLE IF NOT EXISTS vulns (
    key TEXT PRIMARY KEY,
    vuln_id TEXT NOT NULL UNIQUE,
    ecosystem TEXT NOT NULL,
    summary TEXT,
    details TEXT,
    content TEXT NOT NULL,
    published TIMESTAMP,
    modified TIMESTAMP,
    payload TEXT NOT NULL,
    embedding BLOB,
    dimension INTEGER,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_vulns_vuln_id ON vulns(vuln_id);
CREATE INDEX IF NOT EXISTS idx_vulns_ecosystem ON vulns(ecosystem);
CREATE INDEX IF NOT EXISTS idx_vulns_published ON vulns(published);

-- Alias lookup (CVE <-> GHSA cross references)
CREATE TABLE IF NOT EXISTS vuln_aliases (
    alias TEXT NOT NULL,
    vuln_key TEXT NOT NULL,
    PRIMARY KEY (alias, vuln_key),
    FOREIGN KEY (vuln_key) REFERENCES vulns(key) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_vuln_aliases_alias ON vuln_aliases(alias);
`

// schema_version survives rollback; RollbackMigration still has to
// delete the version row from it.
const migrationV1Down = `
DROP TABLE IF EXISTS vuln_aliases;
DROP TABLE IF EXISTS vulns;
`

// ftsSchema provisions the optional keyword index. It is applied outside
// the migration chain because FTS5 may be missing from the SQLite build;
// failure leaves the store in a valid keyword-less state.
const ftsSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS vulns_fts USING fts5(
    content, summary, details,
    content='vulns',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS vulns_ai AFTER INSERT ON vulns BEGIN
    INSERT INTO vulns_fts(rowid, content, summary, details)
    VALUES (new.rowid, new.content, new.summary, new.details);
END;

CREATE TRIGGER IF NOT EXISTS vulns_ad AFTER DELETE ON vulns BEGIN
    INSERT INTO vulns_fts(vulns_fts, rowid, content, summary, details)
    VALUES ('delete', old.rowid, old.content, old.summary, old.details);
END;

CREATE TRIGGER IF NOT EXISTS vulns_au AFTER UPDATE ON vulns BEGIN
    INSERT INTO vulns_fts(vulns_fts, rowid, content, summary, details)
    VALUES ('delete', old.rowid, old.content, old.summary, old.details);
    INSERT INTO vulns_fts(rowid, content, summary, details)
    VALUES (new.rowid, new.content, new.summary, new.details);
END;
`

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied or table doesn't exist)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		_, err = db.ExecContext(ctx, migration.Up)
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// applyFTSSchema provisions the FTS5 keyword index. Returns an error when
// the SQLite build lacks FTS5; the caller records the index as
// unavailable and continues.
func applyFTSSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ftsSchema); err != nil {
		return fmt.Errorf("failed to provision FTS index: %w", err)
	}
	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	_, err = db.ExecContext(ctx, migration.Down)
	if err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	_, err = db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion)
	if err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return nil
}

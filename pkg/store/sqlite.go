package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// schemaVersion is the on-disk schema version written by this build.
// Opening a database with a higher version fails with InvalidVersionError
// and the operator is directed toward an explicit reset.
const schemaVersion = 1

// DatabaseName is the file name of the relational store inside a
// trust-state directory.
const DatabaseName = "database.sqlite3"

// Store provides the trust-state repositories over a shared SQLite
// connection pool.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	// The pragmas ride in the DSN so they apply to every connection in the
	// pool, not just the one that happened to execute a PRAGMA statement.
	//
	// WAL mode allows readers to see committed changes immediately without
	// blocking writers, which matters when a CLI and a long-running node
	// share the same trust-state directory. The busy timeout makes
	// concurrent writers wait for the lock instead of immediately
	// returning SQLITE_BUSY.
	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it doesn't exist and checks the on-disk
// schema version against the running build.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema version table: %w", err)
	}

	var version sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	switch {
	case !version.Valid:
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	case version.Int64 > schemaVersion:
		return &InvalidVersionError{Version: version.Int64}
	}

	schema := `
	-- Identity change histories, one opaque blob per identifier
	CREATE TABLE IF NOT EXISTS identity (
		identifier TEXT PRIMARY KEY,
		change_history BLOB NOT NULL
	);

	-- Attested attributes, one entry per subject identifier
	CREATE TABLE IF NOT EXISTS identity_attributes (
		identifier TEXT PRIMARY KEY,
		attributes BLOB NOT NULL,
		added INTEGER NOT NULL,
		expires INTEGER,
		attested_by TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_identity_attributes_attested_by ON identity_attributes(attested_by);

	-- Purpose keys derived from an identity for one functional purpose
	CREATE TABLE IF NOT EXISTS purpose_keys (
		identifier TEXT NOT NULL,
		purpose TEXT NOT NULL,
		attestation BLOB NOT NULL,
		PRIMARY KEY (identifier, purpose)
	);

	-- Enrollment status per identity
	CREATE TABLE IF NOT EXISTS identity_enrollment (
		identifier TEXT PRIMARY KEY,
		enrolled_at INTEGER
	);

	-- Named-entity registries: name to record, at most one default per table
	CREATE TABLE IF NOT EXISTS named_identity (
		name TEXT PRIMARY KEY,
		record BLOB NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_named_identity_default ON named_identity(is_default);

	CREATE TABLE IF NOT EXISTS named_vault (
		name TEXT PRIMARY KEY,
		record BLOB NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_named_vault_default ON named_vault(is_default);

	CREATE TABLE IF NOT EXISTS named_node (
		name TEXT PRIMARY KEY,
		record BLOB NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_named_node_default ON named_node(is_default);

	-- Cedar policy text per resource and action
	CREATE TABLE IF NOT EXISTS resource_policies (
		resource TEXT NOT NULL,
		action TEXT NOT NULL,
		expression TEXT NOT NULL,
		PRIMARY KEY (resource, action)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Package store persists shared syntax trees, file versions and diff runs
// in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a diff run id has no row.
var ErrRunNotFound = errors.New("diff run not found")

// Store is the SQLite data access layer.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
-- Shared node graph. A node row is identified by the digest of its type,
-- label and child digests, so identical subtrees of any version share rows.

CREATE TABLE IF NOT EXISTS labels (
  id              INTEGER PRIMARY KEY,
  text            TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS nodes (
  id              INTEGER PRIMARY KEY,
  digest          TEXT NOT NULL UNIQUE,
  type            TEXT NOT NULL,
  label_id        INTEGER REFERENCES labels(id),
  size            INTEGER NOT NULL,
  height          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS node_children (
  parent_id       INTEGER NOT NULL REFERENCES nodes(id),
  ordinal         INTEGER NOT NULL,
  child_id        INTEGER NOT NULL REFERENCES nodes(id),
  PRIMARY KEY (parent_id, ordinal)
);

-- Versions

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  root_node_id    INTEGER NOT NULL REFERENCES nodes(id),
  source_hash     TEXT NOT NULL,
  tag             TEXT,
  created_at      TIMESTAMP NOT NULL
);

-- Diff runs

CREATE TABLE IF NOT EXISTS diff_runs (
  id              TEXT PRIMARY KEY,
  src_version_id  INTEGER REFERENCES versions(id),
  dst_version_id  INTEGER REFERENCES versions(id),
  strategy        TEXT NOT NULL,
  src_size        INTEGER NOT NULL,
  dst_size        INTEGER NOT NULL,
  mappings        INTEGER NOT NULL,
  inserts         INTEGER NOT NULL,
  deletes         INTEGER NOT NULL,
  updates         INTEGER NOT NULL,
  moves           INTEGER NOT NULL,
  prepare_ns      INTEGER NOT NULL,
  subtree_ns      INTEGER NOT NULL,
  bottom_up_ns    INTEGER NOT NULL,
  script_ns       INTEGER NOT NULL,
  total_ns        INTEGER NOT NULL,
  created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES diff_runs(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  path            BLOB NOT NULL,
  parent_path     BLOB,
  idx             INTEGER NOT NULL,
  origin_path     BLOB NOT NULL,
  type            TEXT,
  label           TEXT,
  has_label       BOOLEAN DEFAULT FALSE,
  old_type        TEXT,
  old_label       TEXT
);

-- Indexes

CREATE INDEX IF NOT EXISTS idx_node_children_child ON node_children(child_id);
CREATE INDEX IF NOT EXISTS idx_versions_file ON versions(file_id);
CREATE INDEX IF NOT EXISTS idx_diff_runs_created ON diff_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_actions_run ON actions(run_id, ordinal);
`

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package store persists the data model of §3: Repository, Document,
// CatalogNode, FileItem, FileItemSource, and CommitRecord. DependencyTree
// is deliberately absent — it stays in-memory only, by design (§4.4).
//
// Grounded on pkg/storage/embedded.go for the
// engine-selectable, idempotent-init shape (EnsureSchema, Close) and on
// internal/bootstrap/bootstrap.go for the create-dir-then-open-then-
// ensure-schema initialization flow — both rebuilt against
// database/sql + modernc.org/sqlite instead of cmd/cie's CGO-only
// CozoDB binding (see DESIGN.md for why that dependency was dropped).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/docwiki/internal/observability"
)

// Engine selects the backing storage. "mem" is an in-memory SQLite
// database, useful for tests; "sqlite" is a file-backed database under
// DataDir.
type Engine string

const (
	EngineSQLite Engine = "sqlite"
	EngineMemory Engine = "mem"
)

// Config controls Store initialization.
type Config struct {
	Engine  Engine
	DataDir string
	Logger  *slog.Logger
}

// Store wraps the embedded database and exposes the entity operations the
// Pipeline Orchestrator, Scheduler, and external interfaces need.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (if needed) the data directory, opens the database, and
// ensures the schema exists. Calling Open repeatedly on the same DataDir
// is idempotent, matching  InitProject contract.
func Open(cfg Config) (*Store, error) {
	logger := observability.OrDefault(cfg.Logger)

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.Engine == EngineMemory {
		// A pooled in-memory SQLite connection sees a fresh, empty
		// database per connection unless pinned to one.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func dataSourceName(cfg Config) (string, error) {
	if cfg.Engine == EngineMemory {
		return "file::memory:?cache=shared", nil
	}
	if cfg.DataDir == "" {
		return "", fmt.Errorf("store: DataDir required for engine %q", cfg.Engine)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(cfg.DataDir, "docwiki.db"), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for callers (e.g. internal/testing fixtures)
// that need direct access; everyday callers should use the typed methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id             TEXT PRIMARY KEY,
	organization   TEXT NOT NULL,
	name           TEXT NOT NULL,
	branch         TEXT NOT NULL,
	address        TEXT NOT NULL,
	cred_username  TEXT,
	cred_token     TEXT,
	status         TEXT NOT NULL,
	version        TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	prompt         TEXT NOT NULL DEFAULT '',
	classification TEXT NOT NULL DEFAULT '',
	tree_listing   TEXT NOT NULL DEFAULT '',
	views          INTEGER NOT NULL DEFAULT 0,
	recommended    INTEGER NOT NULL DEFAULT 0,
	heartbeat_at   INTEGER NOT NULL DEFAULT 0,
	failure_count  INTEGER NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

-- Branch uniqueness is enforced over non-terminally-failed rows only
-- (Open Question 1, resolved in DESIGN.md): a FAILED repository may be
-- re-registered, but two rows may never share the triple while either is
-- live or COMPLETED.
CREATE UNIQUE INDEX IF NOT EXISTS idx_repositories_triple_live
	ON repositories(organization, name, branch)
	WHERE status <> 'FAILED';

CREATE TABLE IF NOT EXISTS documents (
	repository_id     TEXT PRIMARY KEY REFERENCES repositories(id) ON DELETE CASCADE,
	overview          TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	mini_map_json     TEXT NOT NULL DEFAULT '',
	completed_leaves  INTEGER NOT NULL DEFAULT 0,
	total_leaves      INTEGER NOT NULL DEFAULT 0,
	updated_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_nodes (
	id            TEXT PRIMARY KEY,
	repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	parent_id     TEXT REFERENCES catalog_nodes(id) ON DELETE CASCADE,
	title         TEXT NOT NULL,
	slug          TEXT NOT NULL,
	order_index   INTEGER NOT NULL,
	prompt        TEXT NOT NULL DEFAULT '',
	is_completed  INTEGER NOT NULL DEFAULT 0,
	is_deleted    INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL,
	UNIQUE(repository_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_catalog_nodes_repo ON catalog_nodes(repository_id);
CREATE INDEX IF NOT EXISTS idx_catalog_nodes_parent ON catalog_nodes(parent_id);

CREATE TABLE IF NOT EXISTS file_items (
	catalog_node_id TEXT PRIMARY KEY REFERENCES catalog_nodes(id) ON DELETE CASCADE,
	title           TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	request_tokens  INTEGER NOT NULL DEFAULT 0,
	response_tokens INTEGER NOT NULL DEFAULT 0,
	size            INTEGER NOT NULL DEFAULT 0,
	updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS file_item_sources (
	id              TEXT PRIMARY KEY,
	catalog_node_id TEXT NOT NULL REFERENCES file_items(catalog_node_id) ON DELETE CASCADE,
	file_path       TEXT NOT NULL,
	line_start      INTEGER,
	line_end        INTEGER
);

CREATE INDEX IF NOT EXISTS idx_file_item_sources_node ON file_item_sources(catalog_node_id);
CREATE INDEX IF NOT EXISTS idx_file_item_sources_path ON file_item_sources(file_path);

CREATE TABLE IF NOT EXISTS commit_records (
	id            TEXT PRIMARY KEY,
	repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	hash          TEXT NOT NULL,
	author        TEXT NOT NULL,
	message       TEXT NOT NULL,
	committed_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commit_records_repo ON commit_records(repository_id, committed_at);
`

// EnsureSchema creates every table and index the store needs if they do
// not already exist. Safe to call repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

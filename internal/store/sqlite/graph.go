// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"context"
	"database/sql"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Compile-time interface checks.
var (
	_ store.GraphStore    = (*GraphStore)(nil)
	_ store.SpaceStore    = (*spaceStore)(nil)
	_ store.NodeStore     = (*nodeStore)(nil)
	_ store.EdgeStore     = (*edgeStore)(nil)
	_ store.PropertyStore = (*propertyStore)(nil)
	_ store.QueryStore    = (*queryStore)(nil)
	_ store.SnapshotStore = (*snapshotStore)(nil)
	_ store.RepairStore   = (*repairStore)(nil)
)

// GraphStore implements store.GraphStore backed by a single SQLite database.
type GraphStore struct {
	db         *sql.DB
	spaces     *spaceStore
	nodes      *nodeStore
	edges      *edgeStore
	properties *propertyStore
	queries    *queryStore
	snapshots  *snapshotStore
	repairs    *repairStore
}

// NewGraphStore opens (or creates) a SQLite database at dbPath and
// initialises the graph tables.
func NewGraphStore(dbPath string) (*GraphStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "opening graph db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "pinging graph db: %w", err)
	}

	if err := migrateGraph(db); err != nil {
		_ = db.Close()
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "migrating graph db: %w", err)
	}

	return &GraphStore{
		db:         db,
		spaces:     &spaceStore{db: db},
		nodes:      &nodeStore{db: db},
		edges:      &edgeStore{db: db},
		properties: &propertyStore{db: db},
		queries:    &queryStore{db: db},
		snapshots:  &snapshotStore{db: db, logger: slog.Default()},
		repairs:    &repairStore{db: db},
	}, nil
}

func migrateGraph(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS spaces (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by  TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	archived    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS nodes (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	space_id           INTEGER NOT NULL,
	label              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	external_entity_id TEXT NOT NULL DEFAULT '',
	created_by         TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	archived           INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (space_id) REFERENCES spaces(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_nodes_space ON nodes(space_id);

CREATE TABLE IF NOT EXISTS edges (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	space_id             INTEGER NOT NULL,
	source_id            INTEGER NOT NULL,
	target_id            INTEGER NOT NULL,
	relation_label       TEXT NOT NULL DEFAULT '',
	external_property_id TEXT NOT NULL DEFAULT '',
	created_at           TEXT NOT NULL,
	FOREIGN KEY (space_id)  REFERENCES spaces(id) ON DELETE CASCADE,
	FOREIGN KEY (source_id) REFERENCES nodes(id)  ON DELETE CASCADE,
	FOREIGN KEY (target_id) REFERENCES nodes(id)  ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edges_space  ON edges(space_id);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);

CREATE TABLE IF NOT EXISTS node_properties (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id        INTEGER NOT NULL,
	statement_id   TEXT,
	property_id    TEXT NOT NULL,
	property_label TEXT NOT NULL DEFAULT '',
	raw_value      TEXT,
	value_text     TEXT NOT NULL DEFAULT '',
	value_id       TEXT NOT NULL DEFAULT '',
	display_text   TEXT NOT NULL DEFAULT '',
	UNIQUE (node_id, statement_id),
	FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_node_properties_pid   ON node_properties(property_id, value_id);
CREATE INDEX IF NOT EXISTS idx_node_properties_vtext ON node_properties(value_text);

CREATE TABLE IF NOT EXISTS edge_properties (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	edge_id        INTEGER NOT NULL,
	statement_id   TEXT,
	property_id    TEXT NOT NULL,
	property_label TEXT NOT NULL DEFAULT '',
	raw_value      TEXT,
	value_text     TEXT NOT NULL DEFAULT '',
	value_id       TEXT NOT NULL DEFAULT '',
	display_text   TEXT NOT NULL DEFAULT '',
	UNIQUE (edge_id, statement_id),
	FOREIGN KEY (edge_id) REFERENCES edges(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_edge_properties_pid ON edge_properties(property_id, value_id);

CREATE TABLE IF NOT EXISTS snapshots (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	space_id   INTEGER NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	payload    BLOB NOT NULL,
	FOREIGN KEY (space_id) REFERENCES spaces(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_snapshots_space ON snapshots(space_id);

CREATE TABLE IF NOT EXISTS projection_repairs (
	id          TEXT PRIMARY KEY,
	operation   TEXT NOT NULL,
	entity      TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	space_id    INTEGER NOT NULL DEFAULT 0,
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	resolved_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_projection_repairs_pending ON projection_repairs(resolved_at, created_at);
`
	_, err := db.Exec(ddl)
	return err
}

// Spaces returns the SpaceStore sub-store.
func (g *GraphStore) Spaces() store.SpaceStore { return g.spaces }

// Nodes returns the NodeStore sub-store.
func (g *GraphStore) Nodes() store.NodeStore { return g.nodes }

// Edges returns the EdgeStore sub-store.
func (g *GraphStore) Edges() store.EdgeStore { return g.edges }

// Properties returns the PropertyStore sub-store.
func (g *GraphStore) Properties() store.PropertyStore { return g.properties }

// Queries returns the QueryStore sub-store.
func (g *GraphStore) Queries() store.QueryStore { return g.queries }

// Snapshots returns the SnapshotStore sub-store.
func (g *GraphStore) Snapshots() store.SnapshotStore { return g.snapshots }

// Repairs returns the RepairStore sub-store.
func (g *GraphStore) Repairs() store.RepairStore { return g.repairs }

// Close closes the underlying database connection.
func (g *GraphStore) Close() error { return g.db.Close() }

// Counts returns the entity totals that a converged projection must match.
func (g *GraphStore) Counts(ctx context.Context) (store.Counts, error) {
	const q = `SELECT
	(SELECT COUNT(*) FROM spaces),
	(SELECT COUNT(*) FROM nodes WHERE archived = 0),
	(SELECT COUNT(*) FROM edges e
		JOIN nodes s ON s.id = e.source_id
		JOIN nodes t ON t.id = e.target_id
		WHERE s.archived = 0 AND t.archived = 0)`

	var c store.Counts
	if err := g.db.QueryRowContext(ctx, q).Scan(&c.Spaces, &c.Nodes, &c.Edges); err != nil {
		return store.Counts{}, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "counting entities: %w", err)
	}
	return c, nil
}

// Package index answers summary queries over a snapshot using an ephemeral
// in-memory SQLite database. Nothing is written to disk.
package index

import (
	"database/sql"
	"fmt"

	"github.com/matsen/cloudscope/internal/topology"
	_ "modernc.org/sqlite"
)

// DB wraps the in-memory SQLite connection.
type DB struct {
	db *sql.DB
}

// Open creates an empty in-memory index.
func Open() (*DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			idx INTEGER NOT NULL,
			kind TEXT NOT NULL,
			region TEXT NOT NULL,
			cost INTEGER NOT NULL,
			cpu REAL NOT NULL,
			mem REAL NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_cost ON nodes(cost);

		CREATE TABLE IF NOT EXISTS edges (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			protocol TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
		CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
	`

	_, err := db.Exec(schema)
	return err
}

// Rebuild clears the index and loads snap into it.
func (d *DB) Rebuild(snap topology.Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("clearing nodes table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM edges"); err != nil {
		return fmt.Errorf("clearing edges table: %w", err)
	}

	nodeStmt, err := tx.Prepare(`
		INSERT INTO nodes (id, idx, kind, region, cost, cpu, mem)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing nodes insert: %w", err)
	}
	defer nodeStmt.Close()

	for i, n := range snap.Nodes {
		idx, ok := topology.ParseNodeID(n.ID)
		if !ok {
			idx = i
		}
		if _, err := nodeStmt.Exec(n.ID, idx, string(n.Kind), n.Region, n.Cost, n.Metrics.CPU, n.Metrics.Mem); err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`
		INSERT INTO edges (source_id, target_id, protocol)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edges insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, e := range snap.Edges {
		if _, err := edgeStmt.Exec(e.Source, e.Target, string(e.Protocol)); err != nil {
			return fmt.Errorf("inserting edge %s->%s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rebuild: %w", err)
	}
	return nil
}

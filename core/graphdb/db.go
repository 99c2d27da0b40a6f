// Package graphdb is a graph.Store backed by a SQLite database. One database
// file holds any number of projects, each with one imported taxonomy.
package graphdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/sqlite"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
)

// DB is the SQLite store of a single project.
type DB struct {
	db      *sql.DB
	project string
	owned   bool
}

var _ graph.Store = (*DB)(nil)

// Open opens (creating if needed) the database at path and selects project.
func Open(ctx context.Context, path, project string) (*DB, error) {
	db, err := sqlite.OpenFile(path)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db, project)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	logging.Debug("graph database opened", "path", path, "project", project, "driver", sqlite.DriverType())
	return s, nil
}

// New wraps an open database, migrating the schema and registering project.
// Close on the returned store does not close db.
func New(ctx context.Context, db *sql.DB, project string) (*DB, error) {
	if project == "" {
		return nil, fmt.Errorf("graphdb: project name is required")
	}
	// SQLite serializes writers; one connection keeps transactions from
	// tripping over each other's locks.
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO projects (name) VALUES (?)`, project); err != nil {
		return nil, fmt.Errorf("graphdb: register project: %w", err)
	}
	return &DB{db: db, project: project}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("graphdb: create schema: %w", err)
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.ExecContext(ctx, `INSERT INTO schema_info (version) VALUES (?)`, schemaVersion)
		if err != nil {
			return fmt.Errorf("graphdb: record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("graphdb: read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("graphdb: schema version %d, want %d", version, schemaVersion)
	}
	return nil
}

// Project returns the selected project name.
func (d *DB) Project() string {
	return d.project
}

// Projects lists the projects held by the database.
func (d *DB) Projects(ctx context.Context) ([]string, error) {
	return listProjects(ctx, d.db)
}

// ListProjects returns the projects of the database at path without
// binding to any of them.
func ListProjects(ctx context.Context, path string) ([]string, error) {
	db, err := sqlite.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return listProjects(ctx, db)
}

func listProjects(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Reset deletes everything imported into the project so it can be
// imported again.
func (d *DB) Reset(ctx context.Context) error {
	return d.Update(ctx, func(tx graph.Tx) error {
		return tx.(*dbTx).reset()
	})
}

// View implements graph.Store. The callback sees one consistent snapshot.
func (d *DB) View(ctx context.Context, fn func(graph.Reader) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graphdb: begin read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	return fn(&dbTx{ctx: ctx, tx: tx, project: d.project})
}

// Update implements graph.Store. The transaction commits when fn returns nil.
func (d *DB) Update(ctx context.Context, fn func(graph.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graphdb: begin write: %w", err)
	}
	if err := fn(&dbTx{ctx: ctx, tx: tx, project: d.project, writable: true}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graphdb: commit: %w", err)
	}
	return nil
}

// Close implements graph.Store.
func (d *DB) Close() error {
	if !d.owned {
		return nil
	}
	return d.db.Close()
}

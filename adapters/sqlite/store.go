// Package sqlite stores workspace documents in a local SQLite file through
// the pure-Go modernc driver. It suits single-user command line use; the
// schema is migrated on open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"time"

	"phaengine/adapters/db"
	"phaengine/adapters/db/postgres/migrations"
	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/internal"
	apperrors "phaengine/internal/errors"
	"phaengine/ports"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Files returns the embedded SQLite migration set.
func Files() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

var childTables = []string{"workspace_constants", "workspace_tables", "workspace_quantities"}

// Store implements ports.QuantityStore on SQLite.
type Store struct {
	db *sqlx.DB
}

var _ ports.QuantityStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, log *internal.Logger) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	conn, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, apperrors.Storage("open sqlite "+path, err)
	}
	// one connection keeps ":memory:" a single database and serialises writers
	conn.SetMaxOpenConns(1)

	if _, err := migrations.NewMigrator(conn.DB, migrations.SQLite, Files(), log).Up(ctx); err != nil {
		conn.Close()
		return nil, apperrors.Storage("migrate sqlite", err)
	}
	return &Store{db: conn}, nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB { return s.db.DB }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored document with doc in one transaction.
func (s *Store) Save(ctx context.Context, doc *quantity.Document) error {
	receptors, err := json.Marshal(db.ExtraReceptors(doc.Receptors))
	if err != nil {
		return apperrors.Storage("marshal receptors", err)
	}
	rows, err := db.DocumentRows(doc)
	if err != nil {
		return apperrors.Storage("encode workspace "+doc.Name, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (name, receptors, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET receptors = excluded.receptors, updated_at = excluded.updated_at
	`, doc.Name, string(receptors), time.Now().Unix())
	if err != nil {
		return apperrors.Storage("save workspace "+doc.Name, err)
	}
	for _, table := range childTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE workspace = ?", doc.Name); err != nil {
			return apperrors.Storage("clear "+table, err)
		}
	}

	inserts := []struct {
		query string
		rows  []db.RecordRow
	}{
		{`INSERT INTO workspace_constants (workspace, id, position, name, record)
			VALUES (:workspace, :id, :position, :name, :record)`, rows.Constants},
		{`INSERT INTO workspace_tables (workspace, id, position, name, record)
			VALUES (:workspace, :id, :position, :name, :record)`, rows.Tables},
		{`INSERT INTO workspace_quantities (workspace, id, position, name, kind, unit, record)
			VALUES (:workspace, :id, :position, :name, :kind, :unit, :record)`, rows.Quantities},
	}
	for _, ins := range inserts {
		for _, r := range ins.rows {
			if _, err := tx.NamedExecContext(ctx, ins.query, r); err != nil {
				return apperrors.Storage("save "+r.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage("commit workspace "+doc.Name, err)
	}
	return nil
}

// Load reads a whole document back.
func (s *Store) Load(ctx context.Context, name string) (*quantity.Document, error) {
	var receptors string
	err := s.db.GetContext(ctx, &receptors, `SELECT receptors FROM workspaces WHERE name = ?`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Storage("load workspace", core.NewNotFoundError("workspace", name))
		}
		return nil, apperrors.Storage("load workspace "+name, err)
	}

	doc := &quantity.Document{Name: name}
	if err := json.Unmarshal([]byte(receptors), &doc.Receptors); err != nil {
		return nil, apperrors.Storage("decode receptors", err)
	}

	var constants, tables, quantities []db.RecordRow
	for _, sel := range []struct {
		dst   *[]db.RecordRow
		query string
	}{
		{&constants, `SELECT workspace, id, position, name, record FROM workspace_constants WHERE workspace = ? ORDER BY position`},
		{&tables, `SELECT workspace, id, position, name, record FROM workspace_tables WHERE workspace = ? ORDER BY position`},
		{&quantities, `SELECT workspace, id, position, name, kind, unit, record FROM workspace_quantities WHERE workspace = ? ORDER BY position`},
	} {
		if err := s.db.SelectContext(ctx, sel.dst, sel.query, name); err != nil {
			return nil, apperrors.Storage("load workspace "+name, err)
		}
	}

	if err := db.DecodeRows(doc, constants, tables, quantities); err != nil {
		return nil, apperrors.Storage("decode workspace "+name, err)
	}
	return doc, nil
}

// List summarises every stored workspace.
func (s *Store) List(ctx context.Context) ([]ports.WorkspaceSummary, error) {
	var rows []struct {
		Name       string `db:"name"`
		UpdatedAt  int64  `db:"updated_at"`
		Quantities int    `db:"quantities"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT w.name, w.updated_at, COUNT(q.id) AS quantities
		FROM workspaces w
		LEFT JOIN workspace_quantities q ON q.workspace = w.name
		GROUP BY w.name, w.updated_at
		ORDER BY w.name`)
	if err != nil {
		return nil, apperrors.Storage("list workspaces", err)
	}

	out := make([]ports.WorkspaceSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, ports.WorkspaceSummary{Name: r.Name, Quantities: r.Quantities, UpdatedAt: time.Unix(r.UpdatedAt, 0).UTC()})
	}
	return out, nil
}

// Delete removes a workspace and its records.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	for _, table := range childTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE workspace = ?", name); err != nil {
			return apperrors.Storage("clear "+table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, name)
	if err != nil {
		return apperrors.Storage("delete workspace "+name, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperrors.Storage("delete workspace "+name, err)
	} else if n == 0 {
		return apperrors.Storage("delete workspace", core.NewNotFoundError("workspace", name))
	}
	return tx.Commit()
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"phaengine/adapters/db"
	"phaengine/domain/core"
	"phaengine/domain/quantity"
	apperrors "phaengine/internal/errors"
	"phaengine/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// QuantityStore implements ports.QuantityStore on PostgreSQL. Every record
// is kept as JSONB next to the columns needed for listing.
type QuantityStore struct {
	db *sqlx.DB
}

// NewQuantityStore wraps an open connection.
func NewQuantityStore(conn *sqlx.DB) *QuantityStore {
	return &QuantityStore{db: conn}
}

// Open connects to url with the pq driver.
func Open(ctx context.Context, url string) (*QuantityStore, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, apperrors.Storage("connect postgres", err)
	}
	return NewQuantityStore(conn), nil
}

var _ ports.QuantityStore = (*QuantityStore)(nil)

// DB exposes the underlying handle for migrations.
func (s *QuantityStore) DB() *sql.DB { return s.db.DB }

// Close releases the connection pool.
func (s *QuantityStore) Close() error { return s.db.Close() }

// Save replaces the stored document with doc in one transaction.
func (s *QuantityStore) Save(ctx context.Context, doc *quantity.Document) error {
	receptors, err := json.Marshal(db.ExtraReceptors(doc.Receptors))
	if err != nil {
		return apperrors.Storage("marshal receptors", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Storage("begin transaction", mapError(err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (name, receptors, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET receptors = EXCLUDED.receptors, updated_at = NOW()
	`, doc.Name, string(receptors))
	if err != nil {
		return apperrors.Storage("save workspace "+doc.Name, mapError(err))
	}

	for _, table := range []string{"workspace_constants", "workspace_tables", "workspace_quantities"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE workspace = $1", doc.Name); err != nil {
			return apperrors.Storage("clear "+table, mapError(err))
		}
	}

	rows, err := db.DocumentRows(doc)
	if err != nil {
		return apperrors.Storage("encode workspace "+doc.Name, err)
	}
	for _, r := range rows.Constants {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO workspace_constants (workspace, id, position, name, record)
			VALUES (:workspace, :id, :position, :name, :record)`, r); err != nil {
			return apperrors.Storage("save constant "+r.Name, mapError(err))
		}
	}
	for _, r := range rows.Tables {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO workspace_tables (workspace, id, position, name, record)
			VALUES (:workspace, :id, :position, :name, :record)`, r); err != nil {
			return apperrors.Storage("save table "+r.Name, mapError(err))
		}
	}
	for _, r := range rows.Quantities {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO workspace_quantities (workspace, id, position, name, kind, unit, record)
			VALUES (:workspace, :id, :position, :name, :kind, :unit, :record)`, r); err != nil {
			return apperrors.Storage("save quantity "+r.Name, mapError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage("commit workspace "+doc.Name, mapError(err))
	}
	return nil
}

// Load reads a whole document back.
func (s *QuantityStore) Load(ctx context.Context, name string) (*quantity.Document, error) {
	var ws db.WorkspaceRow
	err := s.db.GetContext(ctx, &ws, `SELECT name, receptors, updated_at FROM workspaces WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Storage("load workspace", core.NewNotFoundError("workspace", name))
		}
		return nil, apperrors.Storage("load workspace "+name, mapError(err))
	}

	doc := &quantity.Document{Name: ws.Name}
	if err := json.Unmarshal([]byte(ws.Receptors), &doc.Receptors); err != nil {
		return nil, apperrors.Storage("decode receptors", err)
	}

	var constants, tables, quantities []db.RecordRow
	if err := s.db.SelectContext(ctx, &constants, `
		SELECT workspace, id, position, name, record FROM workspace_constants
		WHERE workspace = $1 ORDER BY position`, name); err != nil {
		return nil, apperrors.Storage("load constants", mapError(err))
	}
	if err := s.db.SelectContext(ctx, &tables, `
		SELECT workspace, id, position, name, record FROM workspace_tables
		WHERE workspace = $1 ORDER BY position`, name); err != nil {
		return nil, apperrors.Storage("load tables", mapError(err))
	}
	if err := s.db.SelectContext(ctx, &quantities, `
		SELECT workspace, id, position, name, kind, unit, record FROM workspace_quantities
		WHERE workspace = $1 ORDER BY position`, name); err != nil {
		return nil, apperrors.Storage("load quantities", mapError(err))
	}

	if err := db.DecodeRows(doc, constants, tables, quantities); err != nil {
		return nil, apperrors.Storage("decode workspace "+name, err)
	}
	return doc, nil
}

// List summarises every stored workspace.
func (s *QuantityStore) List(ctx context.Context) ([]ports.WorkspaceSummary, error) {
	out := make([]ports.WorkspaceSummary, 0)
	err := s.db.SelectContext(ctx, &out, `
		SELECT w.name, w.updated_at, COUNT(q.id) AS quantities
		FROM workspaces w
		LEFT JOIN workspace_quantities q ON q.workspace = w.name
		GROUP BY w.name, w.updated_at
		ORDER BY w.name`)
	if err != nil {
		return nil, apperrors.Storage("list workspaces", mapError(err))
	}
	return out, nil
}

// Delete removes a workspace; child rows cascade.
func (s *QuantityStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE name = $1`, name)
	if err != nil {
		return apperrors.Storage("delete workspace "+name, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Storage("delete workspace "+name, err)
	}
	if n == 0 {
		return apperrors.Storage("delete workspace", core.NewNotFoundError("workspace", name))
	}
	return nil
}

// mapError turns well-known server errors into actionable ones.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("schema missing, run migrations: %w", err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", core.ErrContract, pqErr.Message)
		}
	}
	return err
}

package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"phaengine/internal"
)

//go:embed sql/*.sql
var postgresFiles embed.FS

// PostgresFiles returns the embedded postgres migration set.
func PostgresFiles() fs.FS {
	sub, err := fs.Sub(postgresFiles, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Dialect selects placeholder syntax for the bookkeeping statements.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) arg(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Migrator applies versioned SQL files named NNN_name.up.sql with an
// optional NNN_name.down.sql counterpart.
type Migrator struct {
	db      *sql.DB
	files   fs.FS
	dialect Dialect
	log     *internal.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *sql.DB, dialect Dialect, files fs.FS, log *internal.Logger) *Migrator {
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	return &Migrator{db: db, files: files, dialect: dialect, log: log}
}

// MigrationFile is one version of the schema.
type MigrationFile struct {
	Version string
	Name    string
	Up      string
	Down    string
}

// MigrationStatus reports one version against the database.
type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
	// Drifted is set when the applied checksum no longer matches the file.
	Drifted bool
}

// Up executes all pending migrations and returns the versions applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	var done []string
	for _, file := range files {
		if _, ok := applied[file.Version]; ok {
			continue
		}
		if err := m.applyMigration(ctx, file); err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		m.log.Info("Applied migration: %s_%s", file.Version, file.Name)
		done = append(done, file.Version)
	}
	return done, nil
}

// Down rolls back the most recent migration and returns its version.
func (m *Migrator) Down(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}
	var version string
	err := m.db.QueryRowContext(ctx, `
		SELECT version FROM schema_migrations
		ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no migrations to rollback")
		}
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return "", fmt.Errorf("failed to find migration files: %w", err)
	}
	var file *MigrationFile
	for i := range files {
		if files[i].Version == version {
			file = &files[i]
		}
	}
	if file == nil || file.Down == "" {
		return "", fmt.Errorf("migration %s has no down file", version)
	}

	body, err := fs.ReadFile(m.files, file.Down)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", file.Down, err)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return "", fmt.Errorf("failed to execute down migration: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = "+m.dialect.arg(1), version); err != nil {
		return "", fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	m.log.Info("Rolled back migration: %s_%s", file.Version, file.Name)
	return version, nil
}

// Status lists every known migration and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	out := make([]MigrationStatus, 0, len(files))
	for _, file := range files {
		st := MigrationStatus{Version: file.Version, Name: file.Name}
		if sum, ok := applied[file.Version]; ok {
			st.Applied = true
			body, err := fs.ReadFile(m.files, file.Up)
			if err != nil {
				return nil, err
			}
			st.Drifted = sum != calculateChecksum(body)
		}
		out = append(out, st)
	}
	return out, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// getAppliedMigrations maps applied versions to their checksums.
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// calculateChecksum computes SHA256 checksum of migration content
func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// findMigrationFiles pairs up and down files by version.
func (m *Migrator) findMigrationFiles() ([]MigrationFile, error) {
	byVersion := map[string]*MigrationFile{}
	err := fs.WalkDir(m.files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".sql") {
			return nil
		}

		// 001_workspaces.up.sql
		base := path.Base(p)
		parts := strings.SplitN(base, "_", 2)
		if len(parts) < 2 {
			return nil
		}
		rest := strings.TrimSuffix(parts[1], ".sql")
		direction := "up"
		switch {
		case strings.HasSuffix(rest, ".up"):
			rest = strings.TrimSuffix(rest, ".up")
		case strings.HasSuffix(rest, ".down"):
			rest = strings.TrimSuffix(rest, ".down")
			direction = "down"
		}

		f, ok := byVersion[parts[0]]
		if !ok {
			f = &MigrationFile{Version: parts[0], Name: rest}
			byVersion[parts[0]] = f
		}
		if direction == "up" {
			f.Up = p
		} else {
			f.Down = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]MigrationFile, 0, len(byVersion))
	for _, f := range byVersion {
		if f.Up == "" {
			return nil, fmt.Errorf("migration %s has no up file", f.Version)
		}
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// applyMigration executes a single migration file
func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	body, err := fs.ReadFile(m.files, file.Up)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}
	checksum := calculateChecksum(body)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO schema_migrations (version, checksum) VALUES (%s, %s)", m.dialect.arg(1), m.dialect.arg(2)),
		file.Version, checksum)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// Package schema keeps the medications table present and complete. Changes
// are additive only: missing columns are added, nothing is dropped or
// renamed, and a failed alteration is logged rather than fatal.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
)

const createSQLite = `CREATE TABLE IF NOT EXISTS medications (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    dose        TEXT NOT NULL,
    frequency   TEXT NOT NULL,
    notes       TEXT,
    start_time  TEXT,
    created_at  TEXT DEFAULT CURRENT_TIMESTAMP,
    owner_email TEXT
)`

const createPostgres = `CREATE TABLE IF NOT EXISTS medications (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL,
    dose        TEXT NOT NULL,
    frequency   TEXT NOT NULL,
    notes       TEXT,
    start_time  TEXT,
    created_at  TEXT,
    owner_email TEXT
)`

// Manager creates and reconciles the medications table.
type Manager struct {
	db      *sql.DB
	dialect dbx.Dialect
	logger  logging.Logger

	mu      sync.Mutex
	created bool
}

func NewManager(db *sql.DB, d dbx.Dialect, logger logging.Logger) *Manager {
	return &Manager{db: db, dialect: d, logger: logger.With("component", "schema")}
}

// EnsureSchema creates the table on the first call in this process, then
// adds any missing columns and returns the resulting layout. Only a failure
// to create the table is returned; probe and alter failures are logged and
// the canonical name is assumed for whatever could not be confirmed.
func (m *Manager) EnsureSchema(ctx context.Context) (Layout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.created {
		if err := m.create(ctx); err != nil {
			return Layout{}, err
		}
		m.created = true
	}

	existing, err := m.probe(ctx)
	if err != nil {
		m.logger.Warn(ctx, "column probe failed, assuming canonical layout", "table", Table, "err", err)
		return CanonicalLayout(), nil
	}

	layout, missing := resolve(existing)
	for _, col := range missing {
		if col == models.ColID {
			m.logger.Warn(ctx, "table has no id column", "table", Table)
			continue
		}
		if err := m.addColumn(ctx, col); err != nil {
			m.logger.Warn(ctx, "failed to add column", "table", Table, "column", col, "err", err)
			continue
		}
		m.logger.Info(ctx, "added column", "table", Table, "column", col)
	}

	m.ensureOwnerIndex(ctx, layout)

	return layout, nil
}

// addColumn adds col as TEXT. A missing created_at gets CURRENT_TIMESTAMP
// for existing rows: PostgreSQL through the column default, SQLite through a
// backfill, since SQLite refuses a non-constant default on a non-empty table.
func (m *Manager) addColumn(ctx context.Context, col string) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT", Table, QuoteIdent(col))
	if col == models.ColCreatedAt && m.dialect.IsPostgres() {
		stmt += " DEFAULT CURRENT_TIMESTAMP"
	}
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if col != models.ColCreatedAt || m.dialect.IsPostgres() {
		return nil
	}

	backfill := fmt.Sprintf("UPDATE %s SET %s = CURRENT_TIMESTAMP WHERE %s IS NULL", Table, QuoteIdent(col), QuoteIdent(col))
	if _, err := m.db.ExecContext(ctx, backfill); err != nil {
		m.logger.Warn(ctx, "failed to backfill column", "table", Table, "column", col, "err", err)
	}
	return nil
}

func (m *Manager) create(ctx context.Context) error {
	stmt := createSQLite
	if m.dialect.IsPostgres() {
		stmt = createPostgres
	}
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create %s table: %w", Table, err)
	}
	return nil
}

func (m *Manager) probe(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM pragma_table_info(?)`
	if m.dialect.IsPostgres() {
		query = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
	}

	rows, err := m.db.QueryContext(ctx, query, Table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no visible columns", Table)
	}
	return cols, nil
}

func (m *Manager) ensureOwnerIndex(ctx context.Context, layout Layout) {
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_medications_owner ON %s (%s)", Table, layout.Quoted(models.ColOwnerEmail))
	if _, err := m.db.ExecContext(ctx, stmt); err != nil {
		m.logger.Warn(ctx, "failed to create owner index", "err", err)
	}
}

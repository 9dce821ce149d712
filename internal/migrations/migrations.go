// Package migrations embeds the goose migrations for the users and metadata
// tables, one directory per SQL dialect. The medications table is managed by
// internal/schema instead because its columns are reconciled at runtime.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

func dir(d dbx.Dialect) string {
	if d.IsPostgres() {
		return "postgres"
	}
	return "sqlite"
}

// Up applies all pending migrations for dialect d.
func Up(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(d.Goose); err != nil {
		return fmt.Errorf("failed to set goose dialect %s: %w", d.Goose, err)
	}

	if err := goose.UpContext(ctx, db, dir(d)); err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", d.Name, err)
	}
	return nil
}

package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/meditrack/internal/filex"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect describes one supported relational engine.
type Dialect struct {
	// Name is the short engine name used in logs and configuration.
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// Goose is the dialect passed to goose.SetDialect.
	Goose string
	// Placeholder is the bind parameter style for squirrel.
	Placeholder squirrel.PlaceholderFormat
}

var (
	SQLite   = Dialect{Name: "sqlite", Driver: "sqlite", Goose: "sqlite3", Placeholder: squirrel.Question}
	Postgres = Dialect{Name: "postgres", Driver: "pgx", Goose: "pgx", Placeholder: squirrel.Dollar}
)

// IsPostgres reports whether d is the PostgreSQL dialect.
func (d Dialect) IsPostgres() bool { return d.Name == Postgres.Name }

// Builder returns a squirrel statement builder bound to d's placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// DialectFor picks the dialect from a DSN. PostgreSQL URLs and keyword/value
// connection strings select Postgres; anything else is a SQLite path.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Postgres
	case strings.Contains(lower, "host=") && strings.Contains(lower, "dbname="):
		return Postgres
	default:
		return SQLite
	}
}

// Open opens and pings the database described by dsn.
// SQLite handles are limited to one connection so that in-memory databases
// stay a single database and writers never contend for the file lock.
func Open(ctx context.Context, dsn string) (*sql.DB, Dialect, error) {
	d := DialectFor(dsn)

	if d.Name == SQLite.Name && isSQLitePath(dsn) {
		if _, err := filex.EnsureParentDir(dsn); err != nil {
			return nil, d, fmt.Errorf("open %s: %w", d.Name, err)
		}
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, d, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, d, fmt.Errorf("ping %s: %w", d.Name, err)
	}

	return db, d, nil
}

// isSQLitePath reports whether dsn names a plain database file rather than
// an in-memory database or a file: URI.
func isSQLitePath(dsn string) bool {
	return dsn != "" && !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:")
}

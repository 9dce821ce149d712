package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
)

// SQLStore keeps pairs in the metadata table created by the goose
// migrations. It works on both SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dbx.Dialect
	sb      squirrel.StatementBuilderType
}

func NewSQLStore(db *sql.DB, d dbx.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, sb: d.Builder()}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.db, key, "")
}

func (s *SQLStore) get(ctx context.Context, q dbx.DBTX, key, suffix string) ([]byte, error) {
	sel := s.sb.Select("value").From("metadata").Where(squirrel.Eq{"key": key})
	if suffix != "" {
		sel = sel.Suffix(suffix)
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata[%s] query: %w", key, err)
	}

	var value []byte
	err = q.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, s.db, key, value)
}

func (s *SQLStore) set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	query, args, err := s.sb.Insert("metadata").Columns("key", "value").Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build metadata[%s] upsert: %w", key, err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query, args, err := s.sb.Delete("metadata").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build metadata[%s] delete: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

// Incr reads, increments and writes the counter in one transaction. On
// PostgreSQL the row is locked for the duration.
func (s *SQLStore) Incr(ctx context.Context, key string) (int64, error) {
	lock := ""
	if s.dialect.IsPostgres() {
		lock = "FOR UPDATE"
	}

	var next int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		raw, err := s.get(ctx, tx, key, lock)
		if err != nil {
			return err
		}
		var cur int64
		if raw != nil {
			cur, err = strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("metadata[%s] is not a counter: %w", key, err)
			}
		}
		next = cur + 1
		return s.set(ctx, tx, key, []byte(strconv.FormatInt(next, 10)))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment metadata[%s]: %w", key, err)
	}
	return next, nil
}

func (s *SQLStore) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}
	return result, nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}

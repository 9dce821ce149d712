package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{dsn: "meditrack.db", want: "sqlite"},
		{dsn: ":memory:", want: "sqlite"},
		{dsn: "file:meds?mode=memory", want: "sqlite"},
		{dsn: "postgres://u:p@localhost:5432/meds", want: "postgres"},
		{dsn: "PostgreSQL://localhost/meds", want: "postgres"},
		{dsn: "host=localhost user=u dbname=meds sslmode=disable", want: "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, DialectFor(tt.dsn).Name)
		})
	}
}

func TestBuilder_Placeholders(t *testing.T) {
	q, _, err := SQLite.Builder().Select("id").From("medications").Where("owner_email = ?", "a@x.com").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM medications WHERE owner_email = ?", q)

	q, _, err = Postgres.Builder().Select("id").From("medications").Where("owner_email = ?", "a@x.com").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM medications WHERE owner_email = $1", q)

	assert.True(t, Postgres.IsPostgres())
	assert.False(t, SQLite.IsPostgres())
}

func TestOpen_SQLiteFile(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "meds.db")

	db, d, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, SQLite.Name, d.Name)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpen_SQLiteCreatesParentDir(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "nested", "meds.db")

	db, _, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = os.Stat(filepath.Dir(dsn))
	require.NoError(t, err)
}

func TestIsSQLitePath(t *testing.T) {
	assert.True(t, isSQLitePath("meditrack.db"))
	assert.False(t, isSQLitePath(":memory:"))
	assert.False(t, isSQLitePath("file::memory:?cache=shared"))
	assert.False(t, isSQLitePath(""))
}

func TestIsUniqueViolation(t *testing.T) {
	db := setupDB(t)

	_, err := db.Exec(`INSERT INTO t(v) VALUES ('dup')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t(v) VALUES ('dup')`)
	require.Error(t, err)

	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", err)))
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, IsUniqueViolation(nil))
}

package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (r *recordingLogger) Debug(context.Context, string, ...any) {}
func (r *recordingLogger) Info(context.Context, string, ...any)  {}
func (r *recordingLogger) Error(context.Context, string, ...any) {}
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}
func (r *recordingLogger) With(...any) logging.Logger { return r }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func columnNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM pragma_table_info('medications')`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		out = append(out, n)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestEnsureSchema_CreatesFreshTable(t *testing.T) {
	db := setupDB(t)
	m := NewManager(db, dbx.SQLite, logging.Nop())

	layout, err := m.EnsureSchema(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Columns, columnNames(t, db))
	for _, c := range Columns {
		assert.Equal(t, c, layout.Column(c))
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	first, err := NewManager(db, dbx.SQLite, logging.Nop()).EnsureSchema(ctx)
	require.NoError(t, err)
	before := columnNames(t, db)

	m := NewManager(db, dbx.SQLite, logging.Nop())
	for i := 0; i < 3; i++ {
		again, err := m.EnsureSchema(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, before, columnNames(t, db))
}

func TestEnsureSchema_AddsMissingColumnsToLegacyTable(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TABLE medications (
		id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, dose TEXT NOT NULL, frequency TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO medications (name, dose, frequency) VALUES ('Aspirina', '100mg', 'daily')`)
	require.NoError(t, err)

	_, err = NewManager(db, dbx.SQLite, logging.Nop()).EnsureSchema(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, Columns, columnNames(t, db))

	var name string
	var notes, owner, createdAt sql.NullString
	require.NoError(t, db.QueryRow(`SELECT name, notes, owner_email, created_at FROM medications`).
		Scan(&name, &notes, &owner, &createdAt))
	assert.Equal(t, "Aspirina", name)
	assert.False(t, notes.Valid)
	assert.False(t, owner.Valid)

	require.True(t, createdAt.Valid)
	row := models.Row{models.ColCreatedAt: createdAt.String}
	assert.WithinDuration(t, time.Now(), row.Time(models.ColCreatedAt), time.Minute)
}

func TestEnsureSchema_ToleratesCamelCaseColumns(t *testing.T) {
	db := setupDB(t)

	_, err := db.Exec(`CREATE TABLE medications (
		id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, dose TEXT, frequency TEXT,
		notes TEXT, startTime TEXT, createdAt TEXT)`)
	require.NoError(t, err)

	layout, err := NewManager(db, dbx.SQLite, logging.Nop()).EnsureSchema(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "startTime", layout.Column("start_time"))
	assert.Equal(t, "createdAt", layout.Column("created_at"))
	assert.Equal(t, "owner_email", layout.Column("owner_email"))
	assert.Equal(t, `"startTime"`, layout.Quoted("start_time"))

	cols := columnNames(t, db)
	assert.Contains(t, cols, "owner_email")
	assert.NotContains(t, cols, "start_time")
	assert.NotContains(t, cols, "created_at")
}

func TestEnsureSchema_CreateFailureIsReturned(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	_, err := NewManager(db, dbx.SQLite, logging.Nop()).EnsureSchema(context.Background())
	require.ErrorContains(t, err, "failed to create medications table")
}

func TestEnsureSchema_ProbeFailureFallsBackToCanonical(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS medications")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM pragma_table_info(?)")).
		WithArgs("medications").
		WillReturnError(errors.New("no such function: pragma_table_info"))

	log := &recordingLogger{}
	layout, err := NewManager(db, dbx.SQLite, log).EnsureSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CanonicalLayout(), layout)
	assert.Len(t, log.warns, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_AlterFailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS medications")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM pragma_table_info(?)")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("id").AddRow("name").AddRow("dose").AddRow("frequency"))
	for _, col := range []string{"notes", "start_time", "created_at", "owner_email"} {
		exp := mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf(`ALTER TABLE medications ADD COLUMN "%s" TEXT`, col)))
		if col == "notes" {
			exp.WillReturnError(errors.New("database is locked"))
			continue
		}
		exp.WillReturnResult(sqlmock.NewResult(0, 0))
		if col == "created_at" {
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE medications SET "created_at" = CURRENT_TIMESTAMP WHERE "created_at" IS NULL`)).
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_medications_owner")).WillReturnResult(sqlmock.NewResult(0, 0))

	log := &recordingLogger{}
	layout, err := NewManager(db, dbx.SQLite, log).EnsureSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "notes", layout.Column("notes"))
	assert.Equal(t, []string{"failed to add column"}, log.warns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_PostgresCreatedAtDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS medications")).WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range Columns {
		if c != "created_at" {
			rows.AddRow(c)
		}
	}
	mock.ExpectQuery(`FROM information_schema.columns`).WithArgs("medications").WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE medications ADD COLUMN "created_at" TEXT DEFAULT CURRENT_TIMESTAMP`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_medications_owner")).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = NewManager(db, dbx.Postgres, logging.Nop()).EnsureSchema(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_PostgresProbe(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS medications (\n    id          BIGSERIAL PRIMARY KEY")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range Columns {
		rows.AddRow(c)
	}
	mock.ExpectQuery(`FROM information_schema.columns`).WithArgs("medications").WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS idx_medications_owner ON medications ("owner_email")`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	layout, err := NewManager(db, dbx.Postgres, logging.Nop()).EnsureSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CanonicalLayout(), layout)
	require.NoError(t, mock.ExpectationsWereMet())
}

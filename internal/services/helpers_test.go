package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/migrations"
	"github.com/dmitrijs2005/meditrack/internal/repositories/medications"
	"github.com/dmitrijs2005/meditrack/internal/schema"
	"github.com/dmitrijs2005/meditrack/internal/storage"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db, dbx.SQLite))
	return db
}

func newRedisStore(t *testing.T) *kv.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := kv.NewRedisClient(kv.RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kv.NewRedisStore(client, "meditrack:")
}

type fixture struct {
	svc   *MedicationService
	repo  medications.Repository
	store kv.Store
}

// fixtures returns a fresh service per backend. The native fixture keeps the
// session in the SQL metadata table, like the real wiring does.
func fixtures(t *testing.T) map[string]fixture {
	t.Helper()
	out := map[string]fixture{}

	db := setupDB(t)
	sqlBackend := storage.NewSQLBackend(db, dbx.SQLite, schema.NewManager(db, dbx.SQLite, logging.Nop()))
	out["sql"] = newFixture(medications.NewRepository(sqlBackend, logging.Nop()), kv.NewSQLStore(db, dbx.SQLite))

	mem := kv.NewMemoryStore()
	out["blob/memory"] = newFixture(medications.NewRepository(storage.NewBlobBackend(mem, logging.Nop()), logging.Nop()), mem)

	rs := newRedisStore(t)
	out["blob/redis"] = newFixture(medications.NewRepository(storage.NewBlobBackend(rs, logging.Nop()), logging.Nop()), rs)

	return out
}

func newFixture(repo medications.Repository, store kv.Store) fixture {
	return fixture{svc: NewMedicationService(repo, store, logging.Nop()), repo: repo, store: store}
}

package kv

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func setupRedis(t *testing.T, prefix string) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisStore(client, prefix)
}

// allStores returns a fresh instance of every Store implementation.
func allStores(t *testing.T) map[string]Store {
	t.Helper()
	_, rs := setupRedis(t, "meditrack:")
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sql":    NewSQLStore(setupDB(t), dbx.SQLite),
		"redis":  rs,
	}
}

func TestStore_GetMissingReturnsNilNil(t *testing.T) {
	for name, s := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			v, err := s.Get(context.Background(), "absent")
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestStore_SetGetOverwrite(t *testing.T) {
	for name, s := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "@user_email", []byte("a@x.com")))
			v, err := s.Get(ctx, "@user_email")
			require.NoError(t, err)
			assert.Equal(t, []byte("a@x.com"), v)

			require.NoError(t, s.Set(ctx, "@user_email", []byte("b@x.com")))
			v, err = s.Get(ctx, "@user_email")
			require.NoError(t, err)
			assert.Equal(t, []byte("b@x.com"), v)
		})
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	for name, s := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "k", []byte("v")))
			require.NoError(t, s.Delete(ctx, "k"))

			v, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, s.Delete(ctx, "k"))
		})
	}
}

func TestStore_IncrCountsFromOne(t *testing.T) {
	for name, s := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for want := int64(1); want <= 3; want++ {
				got, err := s.Incr(ctx, "medications:seq")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			other, err := s.Incr(ctx, "users:seq")
			require.NoError(t, err)
			assert.Equal(t, int64(1), other)
		})
	}
}

func TestStore_IncrOnNonCounterFails(t *testing.T) {
	for name, s := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "medications", []byte(`[]`)))
			_, err := s.Incr(ctx, "medications")
			require.Error(t, err)

			v, err := s.Get(ctx, "medications")
			require.NoError(t, err)
			assert.Equal(t, []byte(`[]`), v)
		})
	}
}

func TestStore_ListAndClear(t *testing.T) {
	for name, s := range allStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "a", []byte{0xAA}))
			require.NoError(t, s.Set(ctx, "b", []byte("bee")))

			m, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"a": {0xAA}, "b": []byte("bee")}, m)

			require.NoError(t, s.Clear(ctx))
			m, err = s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, m)
		})
	}
}

package users

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/migrations"
	"github.com/dmitrijs2005/meditrack/internal/models"
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

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := kv.NewRedisClient(kv.RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Repository{
		"sql":         NewSQLRepository(setupDB(t), dbx.SQLite),
		"blob/memory": NewBlobRepository(kv.NewMemoryStore()),
		"blob/redis":  NewBlobRepository(kv.NewRedisStore(client, "meditrack:")),
	}
}

func newUser(name, email string) *models.User {
	return &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: "hash-" + name,
		CreatedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := repo.Create(ctx, newUser("Ann", "a@x.com"))
			require.NoError(t, err)
			assert.Positive(t, created.ID)

			got, err := repo.GetByEmail(ctx, "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, "Ann", got.Name)
			assert.Equal(t, "hash-Ann", got.PasswordHash)
			assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
		})
	}
}

func TestRepository_DuplicateEmail(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Create(ctx, newUser("Ann", "a@x.com"))
			require.NoError(t, err)

			_, err = repo.Create(ctx, newUser("Other", "a@x.com"))
			require.ErrorIs(t, err, common.ErrAlreadyExists)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestRepository_GetMissing(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetByEmail(context.Background(), "nobody@x.com")
			require.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestRepository_ListInCreationOrder(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
				_, err := repo.Create(ctx, newUser(e, e))
				require.NoError(t, err)
			}

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "a@x.com", all[0].Email)
			assert.Equal(t, "c@x.com", all[2].Email)
			assert.Less(t, all[0].ID, all[1].ID)
		})
	}
}

func TestRepository_UpdatePassword(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := repo.Create(ctx, newUser("Ann", "a@x.com"))
			require.NoError(t, err)

			require.NoError(t, repo.UpdatePassword(ctx, "a@x.com", "new-hash"))
			got, err := repo.GetByEmail(ctx, "a@x.com")
			require.NoError(t, err)
			assert.Equal(t, "new-hash", got.PasswordHash)

			err = repo.UpdatePassword(ctx, "nobody@x.com", "h")
			require.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestRepository_EmptyList(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			all, err := repo.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

// Package medications implements the medication repository: CRUD over the
// selected storage backend with tenant filtering, ownership checks and the
// read and delete fallbacks.
package medications

import (
	"context"

	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/storage"
)

type Repository interface {
	Init(ctx context.Context) error
	GetAll(ctx context.Context, f storage.Filter) ([]models.Row, error)
	Add(ctx context.Context, r storage.Record) (models.Row, error)
	Update(ctx context.Context, id int64, p storage.Patch) error
	Delete(ctx context.Context, id int64, f storage.Filter) error
}

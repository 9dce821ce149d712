package medications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/storage"
)

type BackendRepository struct {
	backend storage.Backend
	logger  logging.Logger
	now     func() time.Time
}

func NewRepository(b storage.Backend, logger logging.Logger) *BackendRepository {
	return &BackendRepository{
		backend: b,
		logger:  logger.With("component", "medications", "backend", string(b.Kind())),
		now:     time.Now,
	}
}

func (r *BackendRepository) Init(ctx context.Context) error {
	if err := r.backend.Init(ctx); err != nil {
		return fmt.Errorf("init %s backend: %w", r.backend.Kind(), err)
	}
	return nil
}

// GetAll returns the rows visible under f, newest first. When a scoped read
// fails it falls back to the unscoped set, so callers may receive rows of
// other tenants; only a failure of both reads is an error.
func (r *BackendRepository) GetAll(ctx context.Context, f storage.Filter) ([]models.Row, error) {
	rows, err := r.backend.QueryAll(ctx, f)
	if err == nil {
		return rows, nil
	}
	if !f.Scoped() {
		return nil, fmt.Errorf("list medications: %w: %w", common.ErrBackendUnavailable, err)
	}

	r.logger.Warn(ctx, "scoped read failed, returning unscoped rows", "owner", f.OwnerEmail, "err", err)
	rows, err = r.backend.QueryAll(ctx, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list medications: %w: %w", common.ErrBackendUnavailable, err)
	}
	return rows, nil
}

// Add persists rec as given; validation is the caller's job. A zero
// CreatedAt is stamped with the current time.
func (r *BackendRepository) Add(ctx context.Context, rec storage.Record) (models.Row, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	row, err := r.backend.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("add medication: %w", err)
	}
	return row, nil
}

// Update applies p to medication id. When p sets OwnerEmail the row must be
// unowned or already owned by that email; the same condition guards the
// write itself, so a row claimed concurrently is not overwritten.
func (r *BackendRepository) Update(ctx context.Context, id int64, p storage.Patch) error {
	var f storage.Filter
	if p.OwnerEmail != nil {
		f.OwnerEmail = *p.OwnerEmail
	}

	if f.Scoped() {
		row, err := r.backend.Find(ctx, id)
		if err != nil {
			return fmt.Errorf("update medication %d: %w", id, err)
		}
		if owner := row.String(models.ColOwnerEmail); owner != "" && owner != f.OwnerEmail {
			return fmt.Errorf("update medication %d: %w", id, common.ErrPermissionDenied)
		}
	}

	n, err := r.backend.Update(ctx, id, p, f)
	if err != nil {
		return fmt.Errorf("update medication %d: %w", id, err)
	}
	if n == 0 {
		if f.Scoped() {
			return fmt.Errorf("update medication %d: %w", id, common.ErrPermissionDenied)
		}
		return fmt.Errorf("update medication %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// Delete removes medication id under the owner condition of f. If the
// conditional delete errors, the row is deleted by id alone. When nothing
// was deleted the row is looked up to tell a missing id from a foreign one.
func (r *BackendRepository) Delete(ctx context.Context, id int64, f storage.Filter) error {
	n, err := r.backend.Delete(ctx, id, f)
	if err != nil && f.Scoped() {
		r.logger.Warn(ctx, "conditional delete failed, deleting by id", "id", id, "owner", f.OwnerEmail, "err", err)
		n, err = r.backend.Delete(ctx, id, storage.Filter{})
	}
	if err != nil {
		return fmt.Errorf("delete medication %d: %w", id, err)
	}
	if n != 0 {
		return nil
	}

	if !f.Scoped() {
		return fmt.Errorf("delete medication %d: %w", id, common.ErrNotFound)
	}
	if _, err := r.backend.Find(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("delete medication %d: %w", id, common.ErrNotFound)
		}
		return fmt.Errorf("delete medication %d: %w", id, err)
	}
	return fmt.Errorf("delete medication %d: %w", id, common.ErrPermissionDenied)
}

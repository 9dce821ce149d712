package users

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/models"
)

const (
	BlobKey    = "users"
	BlobSeqKey = "users:seq"
)

// BlobRepository keeps every account in one JSON array under BlobKey. The
// mutex serializes read-modify-write cycles within this process.
type BlobRepository struct {
	store kv.Store
	mu    sync.Mutex
}

func NewBlobRepository(store kv.Store) *BlobRepository {
	return &BlobRepository{store: store}
}

func (r *BlobRepository) load(ctx context.Context) ([]models.User, error) {
	raw, err := r.store.Get(ctx, BlobKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *BlobRepository) save(ctx context.Context, users []models.User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	if err := r.store.Set(ctx, BlobKey, raw); err != nil {
		return fmt.Errorf("failed to write users: %w", err)
	}
	return nil
}

func find(users []models.User, email string) int {
	for i := range users {
		if users[i].Email == email {
			return i
		}
	}
	return -1
}

func (r *BlobRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if find(users, user.Email) >= 0 {
		return nil, fmt.Errorf("user %s: %w", user.Email, common.ErrAlreadyExists)
	}

	id, err := r.store.Incr(ctx, BlobSeqKey)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate user id: %w", err)
	}
	user.ID = id

	if err := r.save(ctx, append(users, *user)); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *BlobRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := find(users, email)
	if i < 0 {
		return nil, fmt.Errorf("user %s: %w", email, common.ErrNotFound)
	}
	return &users[i], nil
}

func (r *BlobRepository) List(ctx context.Context) ([]models.User, error) {
	return r.load(ctx)
}

func (r *BlobRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load(ctx)
	if err != nil {
		return err
	}
	i := find(users, email)
	if i < 0 {
		return fmt.Errorf("user %s: %w", email, common.ErrNotFound)
	}
	users[i].PasswordHash = passwordHash
	return r.save(ctx, users)
}

package users

import (
	"context"

	"github.com/dmitrijs2005/meditrack/internal/models"
)

// Repository stores accounts. Emails are matched exactly; normalization is
// the caller's job.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

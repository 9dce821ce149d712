package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/meditrack/internal/auth"
	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/config"
	"github.com/dmitrijs2005/meditrack/internal/cryptox"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/models"
	"github.com/dmitrijs2005/meditrack/internal/repositories/users"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User  *models.User
	Token string
}

// UserService handles accounts:
// - Register: validate and create users
// - Login: check credentials and issue a session token
// - FindByEmail, ResetPassword: the password recovery flow
type UserService struct {
	repo      users.Repository
	logger    logging.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewUserService(repo users.Repository, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		repo:      repo,
		logger:    logger.With("component", "user-service"),
		jwtSecret: []byte(cfg.SecretKey),
		tokenTTL:  cfg.SessionTTL,
		now:       time.Now,
	}
}

// NormalizeEmail is how emails are compared and stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. An email already in use yields
// common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := models.ValidateUser(name, email, password); err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: cryptox.HashPassword(password),
		CreatedAt:    s.now().UTC(),
	}
	u, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	s.logger.Info(ctx, "user registered", "email", u.Email)
	return u, nil
}

// Login checks the credentials and issues a session token. An unknown email
// and a wrong password both yield common.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := cryptox.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Warn(ctx, "stored password hash unreadable", "email", user.Email, "err", err)
		return nil, common.ErrUnauthorized
	}
	if !ok {
		return nil, common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &LoginResult{User: user, Token: token}, nil
}

// FindByEmail looks up an account for password recovery.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.GetByEmail(ctx, NormalizeEmail(email))
}

// ResetPassword overwrites the password of email without asking for the
// old one.
func (s *UserService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if err := models.ValidatePassword(newPassword); err != nil {
		return err
	}
	email = NormalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, email, cryptox.HashPassword(newPassword)); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	s.logger.Info(ctx, "password reset", "email", email)
	return nil
}

// VerifyToken returns the email a session token was issued for.
func (s *UserService) VerifyToken(token string) (string, error) {
	return auth.GetEmailFromToken(token, s.jwtSecret)
}

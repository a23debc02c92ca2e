// Package app holds the user account use cases.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jcmexdev/disqueria/internal/pkg/apperr"
	"github.com/jcmexdev/disqueria/internal/users-service/domain"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

const minPasswordLen = 6

type Service struct {
	store domain.Store
	now   func() time.Time
}

func NewService(store domain.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create registers a user with a hashed password.
func (s *Service) Create(ctx context.Context, email, password, name string) (domain.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, apperr.Validation("email must be a valid address")
	}
	if len(password) < minPasswordLen {
		return domain.User{}, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return domain.User{}, apperr.Validation("email %s is already registered", user.Email)
		}
		return domain.User{}, err
	}
	slog.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// Find returns the user with email, or nil when there is none.
func (s *Service) Find(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Validate returns the user when password matches, or nil otherwise.
func (s *Service) Validate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.Find(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		slog.InfoContext(ctx, "credential check failed", "user_id", user.ID)
		return nil, nil
	}
	return user, nil
}

// SeedAdmin creates the administrator account on startup when it does not
// exist yet. Missing credentials skip the seed.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		slog.WarnContext(ctx, "admin credentials not set, skipping seed")
		return nil
	}
	existing, err := s.Find(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if _, err := s.Create(ctx, email, password, "Admin"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "admin user seeded", "email", email)
	return nil
}

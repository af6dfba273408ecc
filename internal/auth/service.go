package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Unknown accounts,
// disabled accounts and wrong passwords all collapse into the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Profile builds the immutable resolver identity for a user. It is
// constructed once per authenticated request at the session boundary.
func (s *Service) Profile(user *User) authz.Profile {
	p := authz.NewProfile(user.ID, user.Email, user.Name, user.Roles)
	p.EmailVerified = user.EmailVerified
	p.Phone = user.Phone
	p.BirthDate = user.BirthDate
	return p
}

// LoadProfile rebuilds the resolver identity for a stored session's user.
func (s *Service) LoadProfile(ctx context.Context, userID int64) (authz.Profile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return authz.Profile{}, err
	}
	if !user.IsActive {
		return authz.Profile{}, shared.ErrInvalidCredentials
	}
	return s.Profile(user), nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if err := s.repo.TouchLogin(ctx, userID); err != nil {
		return err
	}
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

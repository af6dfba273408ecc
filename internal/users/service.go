package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, email, name, passwordHash string) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
	AssignRole(ctx context.Context, userID int64, roleName string) error
	RemoveRole(ctx context.Context, userID int64, roleName string) error
}

// Service handles user business logic. Role membership writes broadcast a
// permission cache invalidation so other processes pick them up.
type Service struct {
	repo        RepositoryPort
	invalidator *authz.Invalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator *authz.Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateUser registers a user with a bcrypt hashed password.
func (s *Service) CreateUser(ctx context.Context, email, name, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.CreateUser(ctx, email, name, string(hash))
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// AssignRole grants a role to a user and invalidates the permission cache.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string) error {
	if err := s.repo.AssignRole(ctx, userID, roleName); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RemoveRole revokes a role from a user and invalidates the permission cache.
func (s *Service) RemoveRole(ctx context.Context, userID int64, roleName string) error {
	if err := s.repo.RemoveRole(ctx, userID, roleName); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Publish(ctx)
	}
}

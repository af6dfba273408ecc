package roles

import (
	"context"
	"strings"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	CreateRole(ctx context.Context, name, description string) (*Role, error)
	ListPermissions(ctx context.Context, roleID int64) ([]Permission, error)
	ReplacePermissions(ctx context.Context, roleID int64, perms []Permission) error
}

// Service handles role business logic. Grant writes broadcast a permission
// cache invalidation so every process drops its cached mapping.
type Service struct {
	repo        RepositoryPort
	invalidator *authz.Invalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator *authz.Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns one role with its grant rows.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, []Permission, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	perms, err := s.repo.ListPermissions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return role, perms, nil
}

// CreateRole inserts a role. The super admin name is reserved; it has no
// grant rows because it bypasses checks entirely.
func (s *Service) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	if strings.EqualFold(strings.TrimSpace(name), authz.RoleSuperAdmin) {
		return nil, ErrProtected
	}
	return s.repo.CreateRole(ctx, strings.TrimSpace(name), description)
}

// ReplacePermissions rewrites the role's grants and invalidates the cache.
func (s *Service) ReplacePermissions(ctx context.Context, roleID int64, perms []Permission) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Name == authz.RoleSuperAdmin {
		return ErrProtected
	}
	if err := s.repo.ReplacePermissions(ctx, roleID, perms); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Publish(ctx)
	}
	return nil
}

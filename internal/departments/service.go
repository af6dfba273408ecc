package departments

import (
	"context"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	ListForUser(ctx context.Context, userID int64) ([]Department, error)
	Create(ctx context.Context, name string, managerID int64) (int64, error)
	SetManager(ctx context.Context, id, managerID int64) error
	AddMember(ctx context.Context, id, userID int64) error
	RemoveMember(ctx context.Context, id, userID int64) error
}

// Service handles department business logic. It also serves as the
// department directory consulted during delegated permission checks.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all departments.
func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.repo.List(ctx)
}

// Get returns one department.
func (s *Service) Get(ctx context.Context, id int64) (*Department, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a department.
func (s *Service) Create(ctx context.Context, name string, managerID int64) (*Department, error) {
	id, err := s.repo.Create(ctx, name, managerID)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// SetManager replaces the department manager.
func (s *Service) SetManager(ctx context.Context, id, managerID int64) error {
	return s.repo.SetManager(ctx, id, managerID)
}

// AddMember links a user to the department.
func (s *Service) AddMember(ctx context.Context, id, userID int64) error {
	return s.repo.AddMember(ctx, id, userID)
}

// RemoveMember unlinks a user from the department.
func (s *Service) RemoveMember(ctx context.Context, id, userID int64) error {
	return s.repo.RemoveMember(ctx, id, userID)
}

// DepartmentsForUser returns the departments the user manages or belongs to
// in the shape the permission resolver consumes.
func (s *Service) DepartmentsForUser(ctx context.Context, userID int64) ([]authz.Department, error) {
	depts, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]authz.Department, 0, len(depts))
	for _, d := range depts {
		out = append(out, authz.Department{
			ID:        d.ID,
			Name:      d.Name,
			ManagerID: d.ManagerID,
			MemberIDs: d.MemberIDs,
		})
	}
	return out, nil
}

package roles

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
)

type memoryRoleRepo struct {
	roles  map[int64]Role
	perms  map[int64][]Permission
	nextID int64
}

func newMemoryRoleRepo() *memoryRoleRepo {
	return &memoryRoleRepo{roles: make(map[int64]Role), perms: make(map[int64][]Permission), nextID: 1}
}

func (r *memoryRoleRepo) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *memoryRoleRepo) GetRole(ctx context.Context, id int64) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &role, nil
}

func (r *memoryRoleRepo) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return nil, ErrNameTaken
		}
	}
	role := Role{ID: r.nextID, Name: name, Description: description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.roles[role.ID] = role
	r.nextID++
	return &role, nil
}

func (r *memoryRoleRepo) ListPermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return r.perms[roleID], nil
}

func (r *memoryRoleRepo) ReplacePermissions(ctx context.Context, roleID int64, perms []Permission) error {
	if _, ok := r.roles[roleID]; !ok {
		return ErrNotFound
	}
	r.perms[roleID] = append([]Permission(nil), perms...)
	return nil
}

type countingStore struct {
	fetches int
}

func (s *countingStore) FetchMapping(ctx context.Context) (authz.Mapping, error) {
	s.fetches++
	return authz.Mapping{}, nil
}

func newTestService(t *testing.T) (*Service, *memoryRoleRepo, *authz.Cache, *countingStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newMemoryRoleRepo()
	store := &countingStore{}
	cache := authz.NewCache(store, logger, 0)
	invalidator := authz.NewInvalidator(nil, cache, logger)
	return NewService(repo, invalidator), repo, cache, store
}

func TestCreateRoleRejectsSuperAdminName(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.CreateRole(context.Background(), "  Super_Admin ", "full access")
	require.ErrorIs(t, err, ErrProtected)

	role, err := svc.CreateRole(context.Background(), "auditor", "read only")
	require.NoError(t, err)
	require.Equal(t, "auditor", role.Name)
}

func TestReplacePermissionsInvalidatesCache(t *testing.T) {
	svc, repo, cache, store := newTestService(t)

	role, err := svc.CreateRole(context.Background(), "manager", "")
	require.NoError(t, err)

	_, err = cache.Mapping(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, store.fetches)

	err = svc.ReplacePermissions(context.Background(), role.ID, []Permission{
		{Resource: "tasks", Action: "read", Allowed: true},
		{Resource: "tasks", Action: "approve", Allowed: true, Delegated: true},
		{Resource: "tasks", SubKey: "reassign", Allowed: true},
	})
	require.NoError(t, err)
	require.Len(t, repo.perms[role.ID], 3)

	_, loaded := cache.Snapshot()
	require.False(t, loaded)

	_, err = cache.Mapping(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, store.fetches)
}

func TestReplacePermissionsRefusesSuperAdmin(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.roles[42] = Role{ID: 42, Name: authz.RoleSuperAdmin}

	err := svc.ReplacePermissions(context.Background(), 42, nil)
	require.ErrorIs(t, err, ErrProtected)
}

func TestReplacePermissionsUnknownRole(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	err := svc.ReplacePermissions(context.Background(), 999, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrNotAuthenticated indicates no user profile was supplied.
	ErrNotAuthenticated = errors.New("authz: not authenticated")
	// ErrCheckUnavailable indicates the mapping could not be fetched. The
	// check fails closed; callers must treat this as a denial.
	ErrCheckUnavailable = errors.New("authz: permission check unavailable")
)

// Observer receives the outcome of every permission check. Implemented by
// the metrics layer.
type Observer interface {
	PermissionCheck(resource string, action string, allowed bool)
}

// Resolver answers permission questions for a user profile. It performs no
// writes and is safe for concurrent use; the only shared state it touches is
// the de-duplicated cache fetch.
type Resolver struct {
	cache    *Cache
	logger   *slog.Logger
	observer Observer
}

// NewResolver constructs a Resolver. observer may be nil.
func NewResolver(cache *Cache, logger *slog.Logger, observer Observer) *Resolver {
	return &Resolver{cache: cache, logger: logger, observer: observer}
}

// Can reports whether the profile may perform action on resource. When a
// grant is department-delegated the supplied departments decide the match:
// the user must manage or belong to one of them. A user holding several
// roles is allowed as soon as any role grants the action.
//
// A nil-equivalent profile yields ErrNotAuthenticated. A failed mapping
// fetch yields ErrCheckUnavailable and a denial, never an allowance.
func (r *Resolver) Can(ctx context.Context, p Profile, resource string, action Action, depts ...Department) (bool, error) {
	if p.ID == 0 {
		r.observe(resource, action, false)
		return false, ErrNotAuthenticated
	}
	if p.IsSuperAdmin() {
		r.observe(resource, action, true)
		return true, nil
	}

	mapping, err := r.cache.Mapping(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("permission mapping unavailable, denying",
				slog.String("resource", resource),
				slog.String("action", string(action)),
				slog.Any("error", err))
		}
		r.observe(resource, action, false)
		return false, fmt.Errorf("%w: %v", ErrCheckUnavailable, err)
	}

	allowed := false
	for _, role := range p.Roles {
		grant, ok := mapping.Grant(role, resource)
		if !ok || !grant.Allows(action) {
			continue
		}
		if grant.DelegatedOnly(action) {
			if departmentMatch(p.ID, depts) {
				allowed = true
				break
			}
			continue
		}
		allowed = true
		break
	}

	r.observe(resource, action, allowed)
	return allowed, nil
}

// CanSub resolves a fine-grained sub-permission nested under a resource.
func (r *Resolver) CanSub(ctx context.Context, p Profile, resource, subKey string) (bool, error) {
	if p.ID == 0 {
		return false, ErrNotAuthenticated
	}
	if p.IsSuperAdmin() {
		return true, nil
	}

	mapping, err := r.cache.Mapping(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("permission mapping unavailable, denying",
				slog.String("resource", resource),
				slog.String("sub", subKey),
				slog.Any("error", err))
		}
		return false, fmt.Errorf("%w: %v", ErrCheckUnavailable, err)
	}

	for _, role := range p.Roles {
		grant, ok := mapping.Grant(role, resource)
		if ok && grant.Sub[subKey] {
			return true, nil
		}
	}
	return false, nil
}

// CanCreate reports whether the profile may create resource records.
func (r *Resolver) CanCreate(ctx context.Context, p Profile, resource string) (bool, error) {
	return r.Can(ctx, p, resource, ActionCreate)
}

// CanRead reports whether the profile may read resource records.
func (r *Resolver) CanRead(ctx context.Context, p Profile, resource string) (bool, error) {
	return r.Can(ctx, p, resource, ActionRead)
}

// CanUpdate reports whether the profile may update resource records.
func (r *Resolver) CanUpdate(ctx context.Context, p Profile, resource string) (bool, error) {
	return r.Can(ctx, p, resource, ActionUpdate)
}

// CanDelete reports whether the profile may delete resource records.
func (r *Resolver) CanDelete(ctx context.Context, p Profile, resource string) (bool, error) {
	return r.Can(ctx, p, resource, ActionDelete)
}

func (r *Resolver) observe(resource string, action Action, allowed bool) {
	if r.observer != nil {
		r.observer.PermissionCheck(resource, string(action), allowed)
	}
}

func departmentMatch(userID int64, depts []Department) bool {
	for _, d := range depts {
		if d.Manages(userID) || d.HasMember(userID) {
			return true
		}
	}
	return false
}

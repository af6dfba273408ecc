// Package rbac wires the authz resolver into HTTP routing.
package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/authz"
	"github.com/aysenur-23/revium-erp-suite-sub006/internal/platform/httpx"
)

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Resolver *authz.Resolver
	Logger   *slog.Logger
}

// RequireAuthenticated ensures a profile is present in the request context.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authz.ProfileFromContext(r.Context()); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current user holds at least one of the named
// permissions, e.g. "tasks.view".
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.guard(perms, false)
}

// RequireAll ensures the current user holds every named permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.guard(perms, true)
}

func (m Middleware) guard(perms []string, needAll bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			profile, ok := authz.ProfileFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
				return
			}

			matched := 0
			for _, perm := range perms {
				resource, action, ok := ParseScope(perm)
				if !ok {
					continue
				}
				allowed, err := m.Resolver.Can(r.Context(), profile, resource, action)
				if err != nil {
					m.deny(w, perm, err)
					return
				}
				if allowed {
					matched++
					if !needAll {
						next.ServeHTTP(w, r)
						return
					}
				} else if needAll {
					m.deny(w, perm, nil)
					return
				}
			}
			if needAll && matched == len(perms) {
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w, strings.Join(perms, ", "), nil)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, perm string, err error) {
	switch {
	case errors.Is(err, authz.ErrNotAuthenticated):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
	case errors.Is(err, authz.ErrCheckUnavailable):
		if m.Logger != nil {
			m.Logger.Error("permission check unavailable", slog.String("permission", perm), slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusForbidden, "Permission Check Failed", "the permission check could not be completed; try again shortly")
	default:
		httpx.Problem(w, http.StatusForbidden, "Forbidden", (&authz.DeniedError{Capability: perm}).Error())
	}
}

// ParseScope splits a dotted permission name into a resource and action.
// The "view" and "edit" verbs map onto the read and update actions.
func ParseScope(perm string) (string, authz.Action, bool) {
	perm = strings.TrimSpace(strings.ToLower(perm))
	idx := strings.LastIndex(perm, ".")
	if idx <= 0 || idx == len(perm)-1 {
		return "", "", false
	}
	resource := perm[:idx]
	switch perm[idx+1:] {
	case "view":
		return resource, authz.ActionRead, true
	case "create":
		return resource, authz.ActionCreate, true
	case "edit":
		return resource, authz.ActionUpdate, true
	case "delete":
		return resource, authz.ActionDelete, true
	case "assign":
		return resource, authz.ActionAssign, true
	case "approve":
		return resource, authz.ActionApprove, true
	case "interact":
		return resource, authz.ActionInteract, true
	}
	return "", "", false
}

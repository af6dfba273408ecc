// Package authz decides whether an authenticated user may perform an action
// on a named resource, based on the role to permission mapping stored in the
// database and cached process-wide.
package authz

import (
	"strings"
	"time"
)

// Action enumerates the checks a caller can ask for.
type Action string

const (
	ActionCreate   Action = "create"
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionInteract Action = "interact"
	ActionAssign   Action = "assign"
	ActionApprove  Action = "approve"
)

// RoleSuperAdmin bypasses every permission check.
const RoleSuperAdmin = "super_admin"

// Profile is the immutable identity passed into the resolver. It is built
// once at the authentication boundary and never mutated afterwards.
type Profile struct {
	ID            int64
	Email         string
	EmailVerified bool
	Name          string
	Phone         string
	BirthDate     *time.Time
	Roles         []string
}

// NewProfile constructs a Profile with trimmed, deduplicated roles. The
// original role order is preserved.
func NewProfile(id int64, email, name string, roles []string) Profile {
	seen := make(map[string]struct{}, len(roles))
	clean := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		clean = append(clean, role)
	}
	return Profile{ID: id, Email: email, Name: name, Roles: clean}
}

// HasRole reports whether the profile holds the named role.
func (p Profile) HasRole(name string) bool {
	for _, role := range p.Roles {
		if role == name {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the profile holds the super admin role.
func (p Profile) IsSuperAdmin() bool {
	return p.HasRole(RoleSuperAdmin)
}

// Department carries the membership information needed for
// department-scoped grants.
type Department struct {
	ID        int64
	Name      string
	ManagerID int64
	MemberIDs []int64
}

// Manages reports whether the user manages the department.
func (d Department) Manages(userID int64) bool {
	return d.ManagerID != 0 && d.ManagerID == userID
}

// HasMember reports whether the user belongs to the department.
func (d Department) HasMember(userID int64) bool {
	if d.Manages(userID) {
		return true
	}
	for _, id := range d.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Grant holds the permissions one role has on one resource.
type Grant struct {
	// Actions marks which actions the role may perform.
	Actions map[Action]bool
	// Delegated marks actions that only apply within a department the
	// user manages or belongs to.
	Delegated map[Action]bool
	// Sub holds fine-grained boolean toggles nested under the resource.
	Sub map[string]bool
}

// Allows reports whether the grant covers the action at all.
func (g Grant) Allows(action Action) bool {
	return g.Actions[action]
}

// DelegatedOnly reports whether the action requires a department match.
func (g Grant) DelegatedOnly(action Action) bool {
	return g.Delegated[action]
}

// Mapping is the full role -> resource -> grant table.
type Mapping map[string]map[string]Grant

// Grant looks up the grant for a role/resource pair.
func (m Mapping) Grant(role, resource string) (Grant, bool) {
	grants, ok := m[role]
	if !ok {
		return Grant{}, false
	}
	g, ok := grants[resource]
	return g, ok
}

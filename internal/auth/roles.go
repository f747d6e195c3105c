package auth

import (
	"fmt"
	"strings"
)

// Role is the API role carried in a bearer token. Roles are ordered: each one
// may do everything the roles below it may.
type Role string

const (
	// RoleViewer reads stored spot hours and exports them.
	RoleViewer Role = "viewer"
	// RoleOperator also recalculates spot price averages on demand.
	RoleOperator Role = "operator"
	// RoleAdmin also runs backfills, catalog syncs and scheduled jobs and
	// reads the audit log.
	RoleAdmin Role = "admin"
)

var roleLadder = []Role{RoleViewer, RoleOperator, RoleAdmin}

// ParseRole accepts a role name in any case.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if role.level() == 0 {
		return "", fmt.Errorf("%w %q: want viewer, operator or admin", ErrUnknownRole, value)
	}
	return role, nil
}

// Covers reports whether r may perform actions that need required.
func (r Role) Covers(required Role) bool {
	level := r.level()
	return level > 0 && level >= required.level()
}

func (r Role) level() int {
	for i, role := range roleLadder {
		if role == r {
			return i + 1
		}
	}
	return 0
}

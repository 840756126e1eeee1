package authz

import (
	"fmt"
	"strings"
)

// Role is one of exactly four fixed authority levels. The system never relies
// on an ordering between roles, only on explicit set membership in the
// authority table.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleViewer     Role = "VIEWER"
)

// AllRoles returns the closed set of roles.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleTechnician, RoleViewer}
}

// Valid reports whether r is one of the four declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleViewer:
		return true
	}
	return false
}

// ParseRole converts a stored or submitted value into a Role. Role values are
// constrained to the closed set at every boundary, so anything else is an
// error rather than a silent fallback.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("authz: unknown role %q", value)
	}
	return role, nil
}

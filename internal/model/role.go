package model

import "strings"

// Role is a normalized role name. Historically the panel used two naming
// schemes for the top level ("admin" in newer data, "founder" in older
// records); both spellings are accepted at the boundary and collapse to
// RoleAdmin internally.
type Role string

const (
	RoleEditor  Role = "editor"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// roleLevels maps each recognized role to its ordinal level. Authorization
// is granted iff level(caller) >= level(required). Unknown roles map to 0
// and are therefore always denied.
var roleLevels = map[Role]int{
	RoleEditor:  1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// NormalizeRole lower-cases a role string and collapses the legacy
// "founder" spelling to RoleAdmin. The second return value is false for
// unrecognized names.
func NormalizeRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleEditor:
		return RoleEditor, true
	case RoleManager:
		return RoleManager, true
	case RoleAdmin, Role("founder"):
		return RoleAdmin, true
	}
	return Role(""), false
}

// Level returns the ordinal level of a role, 0 for unrecognized names.
func (r Role) Level() int {
	return roleLevels[r]
}

// HasPermission reports whether a caller holding role r may perform an
// operation requiring the given role.
func (r Role) HasPermission(required Role) bool {
	return r.Level() >= required.Level()
}

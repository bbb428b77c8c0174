package auth

import (
	"fmt"
	"strings"
)

// Role is one of the fixed staff roles a user can hold.
type Role uint8

const (
	RoleAdmin Role = iota
	RolePhysician
	RoleNurse
	RoleFrontDesk
	RoleSales

	roleCount
)

var roleNames = [roleCount]string{
	RoleAdmin:     "admin",
	RolePhysician: "physician",
	RoleNurse:     "nurse",
	RoleFrontDesk: "front_desk",
	RoleSales:     "sales",
}

func (r Role) String() string {
	if r >= roleCount {
		return fmt.Sprintf("role(%d)", uint8(r))
	}
	return roleNames[r]
}

// ParseRole maps a role name to its Role value.
func ParseRole(name string) (Role, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range roleNames {
		if n == name {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", name)
}

// AllRoles returns every defined role in declaration order.
func AllRoles() []Role {
	roles := make([]Role, 0, roleCount)
	for r := Role(0); r < roleCount; r++ {
		roles = append(roles, r)
	}
	return roles
}

// RoleSet is a set of roles stored as a bitmask. The zero value is the empty
// set, which on a route means "any authenticated user".
type RoleSet uint16

// Roles builds a RoleSet from the given roles.
func Roles(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s = s.With(r)
	}
	return s
}

// ParseRoles builds a RoleSet from role names, skipping unknown names. The
// unknown names are returned so callers can log them.
func ParseRoles(names []string) (RoleSet, []string) {
	var (
		s       RoleSet
		unknown []string
	)
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			unknown = append(unknown, n)
			continue
		}
		s = s.With(r)
	}
	return s, unknown
}

func (s RoleSet) With(r Role) RoleSet {
	if r >= roleCount {
		return s
	}
	return s | 1<<r
}

func (s RoleSet) Has(r Role) bool {
	return r < roleCount && s&(1<<r) != 0
}

func (s RoleSet) Empty() bool {
	return s == 0
}

// Intersect returns the roles present in both sets.
func (s RoleSet) Intersect(other RoleSet) RoleSet {
	return s & other
}

// Intersects reports whether the two sets share at least one role.
func (s RoleSet) Intersects(other RoleSet) bool {
	return !s.Intersect(other).Empty()
}

// Slice lists the roles in declaration order.
func (s RoleSet) Slice() []Role {
	var roles []Role
	for r := Role(0); r < roleCount; r++ {
		if s.Has(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// Names lists the role names in declaration order.
func (s RoleSet) Names() []string {
	roles := s.Slice()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return names
}

func (s RoleSet) String() string {
	return "[" + strings.Join(s.Names(), ",") + "]"
}

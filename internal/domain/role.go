package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Role is the organization-wide permission level. The set is closed: there
// are exactly three roles and no custom ones.
type Role int

const (
	RoleMember Role = iota
	RoleTeamLeader
	RoleAdministrator
)

// String returns the canonical wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleTeamLeader:
		return "team_leader"
	case RoleAdministrator:
		return "administrator"
	default:
		return "member"
	}
}

// AtLeast reports whether the role grants at least the given level.
func (r Role) AtLeast(min Role) bool { return r >= min }

// ParseRole maps a role name to a Role. Anything unrecognized resolves to
// RoleMember, the least-privileged role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "team_leader", "teamleader":
		return RoleTeamLeader
	case "administrator", "admin":
		return RoleAdministrator
	default:
		return RoleMember
	}
}

// RoleFromInt maps a stored numeric role to a Role, resolving out-of-range
// values to RoleMember.
func RoleFromInt(n int) Role {
	switch Role(n) {
	case RoleTeamLeader, RoleAdministrator:
		return Role(n)
	default:
		return RoleMember
	}
}

// MarshalJSON encodes the role as its canonical name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts the role name, its numeric form, or a numeric string.
// Unrecognized payloads resolve to RoleMember rather than erroring: the role
// set is closed and Member is the safe floor.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			*r = RoleFromInt(n)
			return nil
		}
		*r = ParseRole(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = RoleFromInt(n)
		return nil
	}
	*r = RoleMember
	return nil
}

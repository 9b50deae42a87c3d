package auth

import "strings"

// Permissions checked by the HTTP routes.
const (
	PermJobsWrite  = "jobs:write"
	PermJobsRead   = "jobs:read"
	PermKeysManage = "keys:manage"
)

// DefaultPermissions is granted to identity provider users when no role
// mapping is configured.
var DefaultPermissions = []string{"jobs:*", "keys:*"}

// MatchPattern checks if a permission pattern matches a required permission.
// Supports "resource:action" format with wildcards:
//
//   - "*:*"       matches everything
//   - "jobs:*"    matches "jobs:read", "jobs:write", etc.
//   - "*:read"    matches "jobs:read", "users:read", etc.
//   - "jobs:read" matches only "jobs:read"
func MatchPattern(pattern, required string) bool {
	if pattern == required || pattern == "*" || pattern == "*:*" {
		return true
	}

	patParts := strings.SplitN(pattern, ":", 2)
	reqParts := strings.SplitN(required, ":", 2)
	if len(patParts) != 2 || len(reqParts) != 2 {
		return false
	}
	return matchWildcard(patParts[0], reqParts[0]) && matchWildcard(patParts[1], reqParts[1])
}

// MatchAny returns true if any of the patterns match the required permission.
func MatchAny(patterns []string, required string) bool {
	for _, p := range patterns {
		if MatchPattern(p, required) {
			return true
		}
	}
	return false
}

func matchWildcard(pattern, value string) bool {
	return pattern == "*" || pattern == value
}

// RolePermissions maps identity provider roles to permission patterns.
type RolePermissions map[string][]string

// Resolve returns the permissions granted by roles. An empty mapping grants
// DefaultPermissions to everyone.
func (m RolePermissions) Resolve(roles []string) []string {
	if len(m) == 0 {
		return append([]string(nil), DefaultPermissions...)
	}
	var out []string
	seen := make(map[string]bool)
	for _, role := range roles {
		for _, perm := range m[role] {
			if !seen[perm] {
				seen[perm] = true
				out = append(out, perm)
			}
		}
	}
	return out
}

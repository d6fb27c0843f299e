// Package topology implements the role/topology helper (C11): normalizing the free-text
// server-role strings the rest of the system deals with into a small set of canonical roles.
package topology

import "strings"

// Role is a normalized site role.
type Role string

const (
	RoleCentral       Role = "central"
	RoleDirectStore   Role = "direct store"
	RoleAllianceStore Role = "alliance store"
	RoleUnknown       Role = ""
)

// Normalize lowercases and trims raw, mapping it onto a canonical Role. Strings that don't
// match a known role pass through unchanged (lowercased, trimmed) rather than erroring, since
// unrecognized roles are treated as non-central by IsBranch and the caller may still want to
// log the original value.
func Normalize(raw string) Role {
	v := strings.ToLower(strings.TrimSpace(raw))

	switch v {
	case "central":
		return RoleCentral
	case "direct store", "directstore", "direct_store":
		return RoleDirectStore
	case "alliance store", "alliancestore", "alliance_store":
		return RoleAllianceStore
	default:
		return Role(v)
	}
}

// IsCentral reports whether role identifies the central hub.
func IsCentral(role Role) bool {
	return role == RoleCentral
}

// IsBranch reports whether role identifies a branch site (direct or alliance store, or any
// other non-empty, non-central role). Only the central hub and the empty RoleUnknown are
// excluded — every other site in the topology behaves as a branch from the replication
// engine's point of view.
func IsBranch(role Role) bool {
	return role != RoleCentral && role != RoleUnknown
}

package authz

// RoleGate decides whether a principal's role appears in the action's
// allowed-role list. It is pure: no I/O, no store lookup. A nil principal
// means no authenticated caller at all, which is distinct from a role
// mismatch.
func RoleGate(p *Principal, allowedRoles []Role) Decision {
	if p == nil {
		return Deny(DenyUnauthenticated)
	}

	for _, role := range allowedRoles {
		if p.Role == role {
			return Allow()
		}
	}

	return Deny(DenyForbidden)
}

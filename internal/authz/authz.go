package authz

import (
	"context"
	"time"
)

// Role is the coarse category of a principal. The set is closed: rows are
// seeded once at bootstrap and never deleted in normal operation.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleUser    Role = "user"
)

// AllRoles lists every role seeded at bootstrap.
var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleUser}

// Principal is an already-authenticated caller. Identity (token parsing,
// session handling) is owned by the identity adapter; the gates only consume
// the resolved user id and role.
type Principal struct {
	UserID int64
	Role   Role
}

// DenyReason distinguishes a missing principal from a failed check so the
// transport layer can map them to 401 vs 403.
type DenyReason string

const (
	DenyUnauthenticated DenyReason = "unauthenticated"
	DenyForbidden       DenyReason = "forbidden"
)

// Decision is the outcome of a gate check. A zero Decision denies.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason DenyReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Permission is the domain view of a catalog entry.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserWithPermissions is the administrative read joining users, their role
// and their effective permission names.
type UserWithPermissions struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type ctxKey string

const principalKey ctxKey = "principal"

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

package authz

import (
	"context"
	"fmt"
	"log/slog"
)

// CheckMode selects how a set of required permission names is evaluated.
type CheckMode int

const (
	// CheckOne requires the single named permission.
	CheckOne CheckMode = iota
	// CheckAny passes if at least one name is effectively granted.
	CheckAny
	// CheckAll passes only if every name is effectively granted.
	CheckAll
)

// CheckInput carries everything a permission check needs, so the decision
// function stays independent of the web framework wiring around it.
type CheckInput struct {
	Principal *Principal
	Names     []string
	Mode      CheckMode
}

// GateRepository is the read side of the grant store the gate depends on.
type GateRepository interface {
	// EffectivePermissionNames returns the names of permissions that are
	// granted to the user and still globally active.
	EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error)
}

// Gate is the fine-grained permission check run after the role gate.
type Gate struct {
	repo   GateRepository
	logger *slog.Logger
}

func NewGate(repo GateRepository, logger *slog.Logger) *Gate {
	return &Gate{
		repo:   repo,
		logger: logger,
	}
}

// Check evaluates the required names against the principal's effective
// grants. A store failure is returned as an error, never as a decision:
// callers must be able to distinguish "denied" from "undeterminable".
func (g *Gate) Check(ctx context.Context, in CheckInput) (Decision, error) {
	if in.Principal == nil {
		return Deny(DenyUnauthenticated), nil
	}
	if len(in.Names) == 0 {
		return Deny(DenyForbidden), nil
	}

	granted, err := g.repo.EffectivePermissionNames(ctx, in.Principal.UserID)
	if err != nil {
		return Decision{}, fmt.Errorf("load effective permissions for user %d: %w", in.Principal.UserID, err)
	}

	grantedSet := make(map[string]struct{}, len(granted))
	for _, name := range granted {
		grantedSet[name] = struct{}{}
	}

	switch in.Mode {
	case CheckAll:
		// Each name is verified individually against the effective set, so
		// duplicate names in the required list cannot under-count.
		for _, name := range in.Names {
			if _, ok := grantedSet[name]; !ok {
				g.logger.WarnContext(ctx, "access denied: missing required permission",
					"user_id", in.Principal.UserID,
					"required_permission", name)
				return Deny(DenyForbidden), nil
			}
		}
		return Allow(), nil
	default: // CheckOne, CheckAny
		for _, name := range in.Names {
			if _, ok := grantedSet[name]; ok {
				return Allow(), nil
			}
		}
		g.logger.WarnContext(ctx, "access denied: none of the required permissions granted",
			"user_id", in.Principal.UserID,
			"required_permissions", in.Names)
		return Deny(DenyForbidden), nil
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/danendra/school-authz/internal/authz"
)

// RequirePermission gates the handler on a single effective permission.
func RequirePermission(gate *authz.Gate, logger *slog.Logger, name string) func(http.Handler) http.Handler {
	return requireGate(gate, logger, []string{name}, authz.CheckOne)
}

// RequireAnyPermission passes when at least one of the named permissions is
// effectively granted.
func RequireAnyPermission(gate *authz.Gate, logger *slog.Logger, names ...string) func(http.Handler) http.Handler {
	return requireGate(gate, logger, names, authz.CheckAny)
}

// RequireAllPermissions passes only when every named permission is
// effectively granted.
func RequireAllPermissions(gate *authz.Gate, logger *slog.Logger, names ...string) func(http.Handler) http.Handler {
	return requireGate(gate, logger, names, authz.CheckAll)
}

// requireGate adapts a gate decision to an HTTP status. Denials never echo
// more than the action's declared permission names, and a store failure is
// a 500, never a silent allow.
func requireGate(gate *authz.Gate, logger *slog.Logger, names []string, mode authz.CheckMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := authz.PrincipalFromContext(r.Context())

			decision, err := gate.Check(r.Context(), authz.CheckInput{
				Principal: principal,
				Names:     names,
				Mode:      mode,
			})
			if err != nil {
				logger.ErrorContext(r.Context(), "permission check failed", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !decision.Allowed {
				if decision.Reason == authz.DenyUnauthenticated {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/danendra/school-authz/internal/authz"
)

// RequireRoles runs the role gate before the handler. The gate is a pure
// membership test over the principal already resolved by Authenticate; no
// store lookup happens here.
func RequireRoles(logger *slog.Logger, roles ...authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := authz.PrincipalFromContext(r.Context())

			decision := authz.RoleGate(principal, roles)
			if !decision.Allowed {
				if decision.Reason == authz.DenyUnauthenticated {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				logger.WarnContext(r.Context(), "access denied: role not allowed",
					"user_id", principal.UserID,
					"role", principal.Role,
					"allowed_roles", roles)
				http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danendra/school-authz/internal/authz"
	"github.com/danendra/school-authz/internal/identity"
)

// PrincipalLoader resolves a validated user id to its principal. Returns
// (nil, nil) when the user does not exist or is inactive.
type PrincipalLoader interface {
	PrincipalByID(ctx context.Context, userID int64) (*authz.Principal, error)
}

// Authenticate validates the bearer token and stores the resolved principal
// in the request context. Requests without a valid principal are rejected
// with 401 before any gate runs.
func Authenticate(validator identity.ValidatorAPI, loader PrincipalLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "authentication failed: invalid token", "error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := claims.SubjectID()
			if err != nil {
				logger.WarnContext(r.Context(), "authentication failed: malformed subject", "error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			principal, err := loader.PrincipalByID(r.Context(), userID)
			if err != nil {
				logger.ErrorContext(r.Context(), "authentication failed: principal lookup", "user_id", userID, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if principal == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := authz.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}

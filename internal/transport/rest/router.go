package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danendra/school-authz/internal/authz"
	"github.com/danendra/school-authz/internal/identity"
	"github.com/danendra/school-authz/internal/transport/middleware"
	"github.com/danendra/school-authz/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes wires the middleware stack and the permission
// administration API. Every route under /permissions is admin-only; the
// mutating routes additionally require the permissions.manage capability.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authzHandler *authz.Handler,
	gate *authz.Gate,
	validator identity.ValidatorAPI,
	principals middleware.PrincipalLoader,
	catalog *authz.Catalog,
	logger *slog.Logger,
) {
	// Names hardcoded into route declarations must exist in the catalog;
	// a typo here should fail at startup, not at request time.
	catalog.MustHave("permissions.manage")

	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Authenticate(validator, principals, logger))

			pr.Route("/permissions", func(ar chi.Router) {
				ar.Use(middleware.RequireRoles(logger, authz.RoleAdmin))

				ar.Get("/", authzHandler.GetPermissions)
				ar.Get("/category/{category}", authzHandler.GetPermissionsByCategory)
				ar.Get("/user/{userId}", authzHandler.GetUserPermissions)
				ar.Get("/users", authzHandler.GetUsersWithPermissions)

				ar.Group(func(mr chi.Router) {
					mr.Use(middleware.RequireAllPermissions(gate, logger, "permissions.manage"))
					mr.Post("/", authzHandler.CreatePermission)
					mr.Post("/user/{userId}/assign", authzHandler.AssignPermissions)
					mr.Post("/user/{userId}/revoke", authzHandler.RevokePermissions)
				})
			})
		})
	})
}

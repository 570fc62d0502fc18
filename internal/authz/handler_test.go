package authz_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/danendra/school-authz/internal/authz"
	"github.com/danendra/school-authz/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Permission Handler", func() {
	var (
		repo    *mockRepository
		handler *authz.Handler
		router  chi.Router
	)

	BeforeEach(func() {
		repo = newMockRepository()
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := authz.NewService(repo, slogger)
		handler = authz.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Route("/permissions", func(r chi.Router) {
			r.Get("/", handler.GetPermissions)
			r.Get("/category/{category}", handler.GetPermissionsByCategory)
			r.Get("/user/{userId}", handler.GetUserPermissions)
			r.Get("/users", handler.GetUsersWithPermissions)
			r.Post("/", handler.CreatePermission)
			r.Post("/user/{userId}/assign", handler.AssignPermissions)
			r.Post("/user/{userId}/revoke", handler.RevokePermissions)
		})

		repo.AddUser(42, "Sample Teacher", "teacher@school.test", "teacher")
		repo.AddPermission("students.create", "students", true)
		repo.AddPermission("students.view", "students", true)
	})

	Describe("GET /permissions", func() {
		It("should return the active catalog as a success envelope", func() {
			req := httptest.NewRequest(http.MethodGet, "/permissions", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

			var response struct {
				Success bool                `json:"success"`
				Data    []*authz.Permission `json:"data"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Success).To(BeTrue())
			Expect(response.Data).To(HaveLen(2))
		})
	})

	Describe("GET /permissions/user/{userId}", func() {
		It("should return the user's effective permission names", func() {
			perm := repo.permissions["students.create"]
			Expect(repo.AssignGrants(context.Background(), 42, []int64{perm.ID}, nil)).To(Succeed())

			req := httptest.NewRequest(http.MethodGet, "/permissions/user/42", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			var response struct {
				Success bool `json:"success"`
				Data    struct {
					UserID      int64    `json:"user_id"`
					Permissions []string `json:"permissions"`
				} `json:"data"`
			}
			Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
			Expect(response.Data.UserID).To(Equal(int64(42)))
			Expect(response.Data.Permissions).To(ConsistOf("students.create"))
		})

		It("should return 404 for an unknown user", func() {
			req := httptest.NewRequest(http.MethodGet, "/permissions/user/99", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should return 400 for a non-numeric user id", func() {
			req := httptest.NewRequest(http.MethodGet, "/permissions/user/abc", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /permissions/user/{userId}/assign", func() {
		It("should assign and record the acting principal as grantor", func() {
			body, _ := json.Marshal(map[string][]string{"permissions": {"students.create"}})
			req := httptest.NewRequest(http.MethodPost, "/permissions/user/42/assign", bytes.NewReader(body))
			admin := &authz.Principal{UserID: 1, Role: authz.RoleAdmin}
			req = req.WithContext(authz.ContextWithPrincipal(req.Context(), admin))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			granted, ok := repo.grantState(42, repo.permissions["students.create"].ID)
			Expect(ok).To(BeTrue())
			Expect(granted).To(BeTrue())
		})

		It("should return 400 with the unknown names when any name does not resolve", func() {
			body, _ := json.Marshal(map[string][]string{"permissions": {"students.create", "no.such"}})
			req := httptest.NewRequest(http.MethodPost, "/permissions/user/42/assign", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("no.such"))

			_, ok := repo.grantState(42, repo.permissions["students.create"].ID)
			Expect(ok).To(BeFalse())
		})

		It("should return 400 for an empty permission list", func() {
			body, _ := json.Marshal(map[string][]string{"permissions": {}})
			req := httptest.NewRequest(http.MethodPost, "/permissions/user/42/assign", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /permissions/user/{userId}/revoke", func() {
		It("should revoke an existing grant", func() {
			perm := repo.permissions["students.create"]
			Expect(repo.AssignGrants(context.Background(), 42, []int64{perm.ID}, nil)).To(Succeed())

			body, _ := json.Marshal(map[string][]string{"permissions": {"students.create"}})
			req := httptest.NewRequest(http.MethodPost, "/permissions/user/42/revoke", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))

			granted, ok := repo.grantState(42, perm.ID)
			Expect(ok).To(BeTrue())
			Expect(granted).To(BeFalse())
		})
	})

	Describe("POST /permissions", func() {
		It("should create a permission and return 201", func() {
			body, _ := json.Marshal(map[string]string{
				"name":         "library.manage",
				"display_name": "Manage Library",
				"category":     "library",
			})
			req := httptest.NewRequest(http.MethodPost, "/permissions", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
		})

		It("should return 409 for a duplicate name", func() {
			body, _ := json.Marshal(map[string]string{
				"name":         "students.create",
				"display_name": "Create Students",
				"category":     "students",
			})
			req := httptest.NewRequest(http.MethodPost, "/permissions", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("should return 400 for a malformed name", func() {
			body, _ := json.Marshal(map[string]string{
				"name":         "Not A Name",
				"display_name": "Broken",
				"category":     "misc",
			})
			req := httptest.NewRequest(http.MethodPost, "/permissions", bytes.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})
})

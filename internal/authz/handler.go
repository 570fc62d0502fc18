package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/danendra/school-authz/internal"
	"github.com/danendra/school-authz/internal/transport"
	"github.com/go-chi/chi"
)

// ServiceAPI is the grant-administration surface the HTTP layer consumes.
type ServiceAPI interface {
	Assign(ctx context.Context, userID int64, names []string, grantedBy *int64) error
	Revoke(ctx context.Context, userID int64, names []string) error
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
	ListUsersWithPermissions(ctx context.Context) ([]*UserWithPermissions, error)
	CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	ListPermissions(ctx context.Context) ([]*Permission, error)
	ListPermissionsByCategory(ctx context.Context, category string) ([]*Permission, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetPermissions handles GET /permissions
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: perms})
}

// GetPermissionsByCategory handles GET /permissions/category/{category}
func (h *Handler) GetPermissionsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if category == "" {
		h.WriteError(w, http.StatusBadRequest, "category is required")
		return
	}

	perms, err := h.Service.ListPermissionsByCategory(r.Context(), category)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: perms})
}

// GetUserPermissions handles GET /permissions/user/{userId}
func (h *Handler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	names, err := h.Service.EffectivePermissions(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: UserPermissionsResponse{
		UserID:      userID,
		Permissions: names,
	}})
}

// GetUsersWithPermissions handles GET /permissions/users
func (h *Handler) GetUsersWithPermissions(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsersWithPermissions(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: users})
}

// CreatePermission handles POST /permissions
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm, err := h.Service.CreatePermission(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, APIResponse{Success: true, Data: perm})
}

// AssignPermissions handles POST /permissions/user/{userId}/assign
func (h *Handler) AssignPermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var dto GrantRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.writeServiceError(w, err)
		return
	}

	var grantedBy *int64
	if principal, ok := PrincipalFromContext(r.Context()); ok && principal != nil {
		grantedBy = &principal.UserID
	}

	if err := h.Service.Assign(r.Context(), userID, dto.Permissions, grantedBy); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: "permissions assigned"})
}

// RevokePermissions handles POST /permissions/user/{userId}/revoke
func (h *Handler) RevokePermissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}

	var dto GrantRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := h.Service.Revoke(r.Context(), userID, dto.Permissions); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, APIResponse{Success: true, Message: "permissions revoked"})
}

func (h *Handler) userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "userId")
	userID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || userID <= 0 {
		h.WriteError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return userID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := internal.IsAppError(err); ok {
		status, body := appErr.ToHTTPResponse()
		if status >= http.StatusInternalServerError {
			h.Logger.Error("internal error", "error", appErr.Error())
		}
		h.WriteJSON(w, status, body)
		return
	}

	h.Logger.Error("unexpected error", "error", err)
	h.WriteError(w, http.StatusInternalServerError, "internal server error")
}

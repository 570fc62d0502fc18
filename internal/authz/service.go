package authz

import (
	"context"
	"log/slog"

	"github.com/danendra/school-authz/internal"
)

// RepositoryAPI is the full grant-store contract the administration service
// depends on. Atomicity notes live on the implementing repository: AssignGrants
// runs in a single transaction, RevokeGrants is one bulk update.
type RepositoryAPI interface {
	GateRepository
	CatalogRepository

	ResolveActivePermissions(ctx context.Context, names []string) ([]*Permission, error)
	AssignGrants(ctx context.Context, userID int64, permissionIDs []int64, grantedBy *int64) error
	RevokeGrants(ctx context.Context, userID int64, permissionIDs []int64) error
	UserExists(ctx context.Context, userID int64) (bool, error)
	ListUsersWithPermissions(ctx context.Context) ([]*UserWithPermissions, error)
	PermissionByName(ctx context.Context, name string) (*Permission, error)
	CreatePermission(ctx context.Context, perm *Permission) error
	ListActivePermissionsByCategory(ctx context.Context, category string) ([]*Permission, error)
}

// Service implements grant administration: assigning and revoking
// permissions and the administrative read APIs.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Assign grants every named permission to the user. The whole call fails
// with a validation error when any name does not resolve to an active
// permission, and no partial grants are written in that case. Assigning a
// previously revoked permission grants it again.
func (s *Service) Assign(ctx context.Context, userID int64, names []string, grantedBy *int64) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "assign: user lookup failed", "user_id", userID, "error", err)
		return internal.NewInternalError("failed to look up user", err)
	}
	if !exists {
		return internal.ErrUserNotFound
	}

	perms, err := s.repo.ResolveActivePermissions(ctx, names)
	if err != nil {
		s.logger.ErrorContext(ctx, "assign: permission resolution failed", "user_id", userID, "error", err)
		return internal.NewInternalError("failed to resolve permissions", err)
	}

	if missing := missingNames(names, perms); len(missing) > 0 {
		s.logger.WarnContext(ctx, "assign: unknown or inactive permissions requested",
			"user_id", userID,
			"missing", missing)
		return internal.NewValidationError("unknown or inactive permissions", internal.ErrCodeUnknownPermissions).
			WithDetails(map[string][]string{"permissions": missing})
	}

	ids := make([]int64, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}

	if err := s.repo.AssignGrants(ctx, userID, ids, grantedBy); err != nil {
		s.logger.ErrorContext(ctx, "assign: grant write failed", "user_id", userID, "error", err)
		return internal.NewInternalError("failed to assign permissions", err)
	}

	s.logger.InfoContext(ctx, "permissions assigned", "user_id", userID, "permissions", names)
	return nil
}

// Revoke flips the grants for every named permission to not-granted. Names
// that do not resolve are ignored, and revoking a permission the user never
// held is a no-op: the effect is monotonic, so no atomicity is needed.
func (s *Service) Revoke(ctx context.Context, userID int64, names []string) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "revoke: user lookup failed", "user_id", userID, "error", err)
		return internal.NewInternalError("failed to look up user", err)
	}
	if !exists {
		return internal.ErrUserNotFound
	}

	perms, err := s.repo.ResolveActivePermissions(ctx, names)
	if err != nil {
		s.logger.ErrorContext(ctx, "revoke: permission resolution failed", "user_id", userID, "error", err)
		return internal.NewInternalError("failed to resolve permissions", err)
	}
	if len(perms) == 0 {
		return nil
	}

	ids := make([]int64, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}

	if err := s.repo.RevokeGrants(ctx, userID, ids); err != nil {
		s.logger.ErrorContext(ctx, "revoke: grant update failed", "user_id", userID, "error", err)
		return internal.NewInternalError("failed to revoke permissions", err)
	}

	s.logger.InfoContext(ctx, "permissions revoked", "user_id", userID, "permissions", names)
	return nil
}

// EffectivePermissions returns the names of all permissions currently
// granted to the user and still active in the catalog.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "effective permissions: user lookup failed", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if !exists {
		return nil, internal.ErrUserNotFound
	}

	names, err := s.repo.EffectivePermissionNames(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "effective permissions: lookup failed", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to load permissions", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// ListUsersWithPermissions is the administrative overview of every user,
// their role and their effective permission names.
func (s *Service) ListUsersWithPermissions(ctx context.Context) ([]*UserWithPermissions, error) {
	users, err := s.repo.ListUsersWithPermissions(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list users with permissions failed", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}
	return users, nil
}

// CreatePermission adds a new catalog entry, active by default.
func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.PermissionByName(ctx, dto.Name)
	if err != nil {
		s.logger.ErrorContext(ctx, "create permission: lookup failed", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to look up permission", err)
	}
	if existing != nil {
		return nil, internal.ErrPermissionExists
	}

	perm := &Permission{
		Name:        dto.Name,
		DisplayName: dto.DisplayName,
		Category:    dto.Category,
		Description: dto.Description,
		IsActive:    true,
	}
	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		s.logger.ErrorContext(ctx, "create permission: insert failed", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create permission", err)
	}

	s.logger.InfoContext(ctx, "permission created", "name", perm.Name, "category", perm.Category)
	return perm, nil
}

// ListPermissions returns all active permissions ordered by category and
// display name.
func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	perms, err := s.repo.ListActivePermissions(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list permissions failed", "error", err)
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return perms, nil
}

// ListPermissionsByCategory returns the active permissions in one category.
func (s *Service) ListPermissionsByCategory(ctx context.Context, category string) ([]*Permission, error) {
	perms, err := s.repo.ListActivePermissionsByCategory(ctx, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "list permissions by category failed", "category", category, "error", err)
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	return perms, nil
}

func missingNames(requested []string, resolved []*Permission) []string {
	resolvedSet := make(map[string]struct{}, len(resolved))
	for _, p := range resolved {
		resolvedSet[p.Name] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := resolvedSet[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

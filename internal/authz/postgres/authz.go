package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/danendra/school-authz/internal/authz"
	authzDatamodel "github.com/danendra/school-authz/internal/core/datamodel/authz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SeedRoles(ctx context.Context, names []string) error {
	for _, name := range names {
		role := authzDatamodel.Role{Name: name}
		if err := r.db.WithContext(ctx).
			Where("name = ?", name).
			FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedPermissions creates any catalog entry whose name is not yet present.
// Existing rows are left untouched so deactivations and manual edits
// survive a reseed.
func (r *Repository) SeedPermissions(ctx context.Context, defs []authz.PermissionDef) error {
	for _, def := range defs {
		perm := authzDatamodel.Permission{
			Name:        def.Name,
			DisplayName: def.DisplayName,
			Category:    def.Category,
			Description: def.Description,
			IsActive:    true,
		}
		if err := r.db.WithContext(ctx).
			Where("name = ?", def.Name).
			FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("permissions").
		Select("permissions.name").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ? AND user_permissions.is_granted = ? AND permissions.is_active = ?", userID, true, true).
		Scan(&names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *Repository) ResolveActivePermissions(ctx context.Context, names []string) ([]*authz.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var rows []*authzDatamodel.Permission
	err := r.db.WithContext(ctx).
		Where("name IN ? AND is_active = ?", names, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	perms := make([]*authz.Permission, len(rows))
	for i, row := range rows {
		perms[i] = toDomain(row)
	}
	return perms, nil
}

// AssignGrants upserts one grant row per permission inside a single
// transaction, so a mid-batch failure leaves no partial assignment. The
// upsert sets is_granted back to true for previously revoked rows.
func (r *Repository) AssignGrants(ctx context.Context, userID int64, permissionIDs []int64, grantedBy *int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, permissionID := range permissionIDs {
			grant := authzDatamodel.UserPermission{
				UserID:       userID,
				PermissionID: permissionID,
				IsGranted:    true,
				GrantedBy:    grantedBy,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"is_granted": true,
					"granted_by": grantedBy,
					"updated_at": now,
				}),
			}).Create(&grant).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RevokeGrants is a single bulk update: rows that do not exist simply are
// not touched, so there is no read-then-write race.
func (r *Repository) RevokeGrants(ctx context.Context, userID int64, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Model(&authzDatamodel.UserPermission{}).
		Where("user_id = ? AND permission_id IN ?", userID, permissionIDs).
		Updates(map[string]interface{}{
			"is_granted": false,
			"updated_at": time.Now(),
		}).Error
}

func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&authzDatamodel.User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListUsersWithPermissions(ctx context.Context) ([]*authz.UserWithPermissions, error) {
	type userRow struct {
		ID    int64
		Name  string
		Email string
		Role  string
	}

	var users []userRow
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.name, users.email, roles.name AS role").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.is_active = ?", true).
		Order("users.id ASC").
		Scan(&users).Error
	if err != nil {
		return nil, err
	}

	type grantRow struct {
		UserID int64
		Name   string
	}

	var grants []grantRow
	err = r.db.WithContext(ctx).
		Table("user_permissions").
		Select("user_permissions.user_id, permissions.name").
		Joins("JOIN permissions ON permissions.id = user_permissions.permission_id").
		Where("user_permissions.is_granted = ? AND permissions.is_active = ?", true, true).
		Scan(&grants).Error
	if err != nil {
		return nil, err
	}

	grantsByUser := make(map[int64][]string, len(users))
	for _, g := range grants {
		grantsByUser[g.UserID] = append(grantsByUser[g.UserID], g.Name)
	}

	result := make([]*authz.UserWithPermissions, len(users))
	for i, u := range users {
		perms := grantsByUser[u.ID]
		if perms == nil {
			perms = []string{}
		}
		result[i] = &authz.UserWithPermissions{
			ID:          u.ID,
			Name:        u.Name,
			Email:       u.Email,
			Role:        u.Role,
			Permissions: perms,
		}
	}
	return result, nil
}

func (r *Repository) PermissionByName(ctx context.Context, name string) (*authz.Permission, error) {
	var row authzDatamodel.Permission
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(&row), nil
}

func (r *Repository) CreatePermission(ctx context.Context, perm *authz.Permission) error {
	row := authzDatamodel.Permission{
		Name:        perm.Name,
		DisplayName: perm.DisplayName,
		Category:    perm.Category,
		Description: perm.Description,
		IsActive:    perm.IsActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}

	perm.ID = row.ID
	perm.CreatedAt = row.CreatedAt
	perm.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) ListActivePermissions(ctx context.Context) ([]*authz.Permission, error) {
	var rows []*authzDatamodel.Permission
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category ASC, display_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	perms := make([]*authz.Permission, len(rows))
	for i, row := range rows {
		perms[i] = toDomain(row)
	}
	return perms, nil
}

func (r *Repository) ListActivePermissionsByCategory(ctx context.Context, category string) ([]*authz.Permission, error) {
	var rows []*authzDatamodel.Permission
	err := r.db.WithContext(ctx).
		Where("category = ? AND is_active = ?", category, true).
		Order("display_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	perms := make([]*authz.Permission, len(rows))
	for i, row := range rows {
		perms[i] = toDomain(row)
	}
	return perms, nil
}

// PrincipalByID resolves a user id to a principal with its role name. Used
// by the authentication middleware after token validation.
func (r *Repository) PrincipalByID(ctx context.Context, userID int64) (*authz.Principal, error) {
	var row struct {
		ID   int64
		Role string
	}
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, roles.name AS role").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.id = ? AND users.is_active = ?", userID, true).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &authz.Principal{UserID: row.ID, Role: authz.Role(row.Role)}, nil
}

func toDomain(row *authzDatamodel.Permission) *authz.Permission {
	return &authz.Permission{
		ID:          row.ID,
		Name:        row.Name,
		DisplayName: row.DisplayName,
		Category:    row.Category,
		Description: row.Description,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

package authz

import (
	"regexp"

	"github.com/danendra/school-authz/internal"
	"github.com/danendra/school-authz/internal/core/common/validation"
)

// permission names are dotted capability identifiers: "<category>.<verb>"
var permissionNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// APIResponse is the success envelope every endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type CreatePermissionDTO struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (d CreatePermissionDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", d.Name).
		Required().
		MaxLength(100).
		Matches(permissionNamePattern, "name must be a dotted identifier like students.create", internal.ErrCodeInvalidName)
	v.Field("display_name", d.DisplayName).Required().MaxLength(100)
	v.Field("category", d.Category).Required().MaxLength(50)
	v.Field("description", d.Description).MaxLength(255)
	return v.Validate()
}

type GrantRequestDTO struct {
	Permissions []string `json:"permissions"`
}

func (d GrantRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("permissions", d.Permissions).Required()
	return v.Validate()
}

type UserPermissionsResponse struct {
	UserID      int64    `json:"user_id"`
	Permissions []string `json:"permissions"`
}

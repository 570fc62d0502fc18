package authz

import (
	"context"
	"fmt"
)

// PermissionDef is a catalog seed entry. Names are dotted capability
// identifiers in the form "<category>.<verb>".
type PermissionDef struct {
	Name        string
	DisplayName string
	Category    string
	Description string
}

// DefaultCatalog is the fixed permission universe seeded at bootstrap.
var DefaultCatalog = []PermissionDef{
	{Name: "students.create", DisplayName: "Create Students", Category: "students", Description: "Register new students"},
	{Name: "students.view", DisplayName: "View Students", Category: "students", Description: "View student records"},
	{Name: "students.update", DisplayName: "Update Students", Category: "students", Description: "Edit student records"},
	{Name: "students.delete", DisplayName: "Delete Students", Category: "students", Description: "Remove student records"},
	{Name: "staff.create", DisplayName: "Create Staff", Category: "staff", Description: "Register new staff members"},
	{Name: "staff.view", DisplayName: "View Staff", Category: "staff", Description: "View staff records"},
	{Name: "staff.update", DisplayName: "Update Staff", Category: "staff", Description: "Edit staff records"},
	{Name: "staff.delete", DisplayName: "Delete Staff", Category: "staff", Description: "Remove staff records"},
	{Name: "classes.create", DisplayName: "Create Classes", Category: "classes", Description: "Create classes and sections"},
	{Name: "classes.view", DisplayName: "View Classes", Category: "classes", Description: "View classes and sections"},
	{Name: "classes.update", DisplayName: "Update Classes", Category: "classes", Description: "Edit classes and sections"},
	{Name: "classes.delete", DisplayName: "Delete Classes", Category: "classes", Description: "Remove classes and sections"},
	{Name: "exams.create", DisplayName: "Create Exams", Category: "exams", Description: "Schedule exams and record results"},
	{Name: "exams.view", DisplayName: "View Exams", Category: "exams", Description: "View exams and results"},
	{Name: "exams.update", DisplayName: "Update Exams", Category: "exams", Description: "Edit exams and results"},
	{Name: "exams.delete", DisplayName: "Delete Exams", Category: "exams", Description: "Remove exams and results"},
	{Name: "fees.create", DisplayName: "Create Fees", Category: "fees", Description: "Record fee payments"},
	{Name: "fees.view", DisplayName: "View Fees", Category: "fees", Description: "View fee records"},
	{Name: "fees.update", DisplayName: "Update Fees", Category: "fees", Description: "Edit fee records"},
	{Name: "fees.delete", DisplayName: "Delete Fees", Category: "fees", Description: "Remove fee records"},
	{Name: "reports.view", DisplayName: "View Reports", Category: "reports", Description: "View aggregated reports"},
	{Name: "dashboard.view", DisplayName: "View Dashboard", Category: "reports", Description: "View the dashboard"},
	{Name: "permissions.manage", DisplayName: "Manage Permissions", Category: "settings", Description: "Assign and revoke user permissions"},
}

// CatalogRepository is the write side Bootstrap needs. Seeding is
// insert-if-absent by unique name: mutable fields of an existing row are
// never touched on reseed.
type CatalogRepository interface {
	SeedRoles(ctx context.Context, names []string) error
	SeedPermissions(ctx context.Context, defs []PermissionDef) error
	ListActivePermissions(ctx context.Context) ([]*Permission, error)
}

// Catalog is an immutable snapshot of the permission universe taken at
// bootstrap. It is handed explicitly to wiring code so statically declared
// permission names can be verified at startup instead of failing at
// request time.
type Catalog struct {
	byName map[string]PermissionDef
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// MustHave panics when a name is not in the snapshot. Only for wiring-time
// checks of names hardcoded into route declarations.
func (c *Catalog) MustHave(names ...string) {
	for _, name := range names {
		if !c.Has(name) {
			panic(fmt.Sprintf("authz: permission %q is not in the catalog", name))
		}
	}
}

func (c *Catalog) Len() int {
	return len(c.byName)
}

// Bootstrap seeds the role registry and the permission catalog, then returns
// a snapshot of every active permission. It must run before the server
// accepts traffic; any failure here is fatal to startup since every gate
// decision depends on a complete catalog.
func Bootstrap(ctx context.Context, repo CatalogRepository, defs []PermissionDef) (*Catalog, error) {
	roleNames := make([]string, len(AllRoles))
	for i, role := range AllRoles {
		roleNames[i] = string(role)
	}
	if err := repo.SeedRoles(ctx, roleNames); err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	if err := repo.SeedPermissions(ctx, defs); err != nil {
		return nil, fmt.Errorf("seed permission catalog: %w", err)
	}

	perms, err := repo.ListActivePermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load permission catalog: %w", err)
	}

	byName := make(map[string]PermissionDef, len(perms))
	for _, p := range perms {
		byName[p.Name] = PermissionDef{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			Category:    p.Category,
			Description: p.Description,
		}
	}

	return &Catalog{byName: byName}, nil
}

package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/danendra/school-authz/internal/authz"
	authzPostgres "github.com/danendra/school-authz/internal/authz/postgres"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with roles, the permission catalog and sample users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		repo := authzPostgres.NewRepository(gormDB)

		if clearData {
			if err := gormDB.Exec("DELETE FROM user_permissions").Error; err != nil {
				log.Fatalf("failed to clear grants: %v", err)
			}
			fmt.Println("Cleared existing grants")
		}

		catalog, err := authz.Bootstrap(ctx, repo, authz.DefaultCatalog)
		if err != nil {
			log.Fatalf("failed to seed roles and catalog: %v", err)
		}
		fmt.Printf("Seeded %d permissions\n", catalog.Len())

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		adminID, err := ensureUser(gormDB, "admin@school.test", "School Admin", string(authz.RoleAdmin), string(hash))
		if err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}

		teacherID, err := ensureUser(gormDB, "teacher@school.test", "Sample Teacher", string(authz.RoleTeacher), string(hash))
		if err != nil {
			log.Fatalf("failed to seed teacher user: %v", err)
		}

		allNames := make([]string, len(authz.DefaultCatalog))
		for i, def := range authz.DefaultCatalog {
			allNames[i] = def.Name
		}
		if err := grantPermissions(ctx, repo, adminID, allNames); err != nil {
			log.Fatalf("failed to grant permissions to admin: %v", err)
		}
		fmt.Println("Granted all permissions to admin user")

		teacherNames := []string{
			"students.view",
			"classes.view",
			"exams.create",
			"exams.view",
			"exams.update",
			"dashboard.view",
		}
		if err := grantPermissions(ctx, repo, teacherID, teacherNames); err != nil {
			log.Fatalf("failed to grant permissions to teacher: %v", err)
		}
		fmt.Println("Granted teaching permissions to teacher user")
	},
}

func ensureUser(db *gorm.DB, email, name, roleName, passwordHash string) (int64, error) {
	var roleID int64
	if err := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row().Scan(&roleID); err != nil {
		return 0, fmt.Errorf("role %s not found: %w", roleName, err)
	}

	var userID int64
	err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&userID)
	if err == nil {
		fmt.Printf("User %s already exists\n", email)
		return userID, nil
	}

	err = db.Exec(
		"INSERT INTO users (email, name, password_hash, role_id, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
		email, name, passwordHash, roleID,
	).Error
	if err != nil {
		return 0, err
	}

	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&userID); err != nil {
		return 0, err
	}

	fmt.Printf("Seeded user: %s (%s)\n", email, roleName)
	return userID, nil
}

func grantPermissions(ctx context.Context, repo *authzPostgres.Repository, userID int64, names []string) error {
	perms, err := repo.ResolveActivePermissions(ctx, names)
	if err != nil {
		return err
	}

	ids := make([]int64, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}
	return repo.AssignGrants(ctx, userID, ids, nil)
}

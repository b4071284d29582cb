package cmd

import (
	"fmt"
	"log"

	"github.com/frahmantamala/taskboard/internal/rbac"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with roles, permissions and sample users",
	Long:  `Seed the database with the permission catalogue, the default roles and sample users for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"user_roles", "role_permissions", "roles", "permissions"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing RBAC data")
		}

		seedPermissions(db)
		seedRoles(db)
		seedUsers(db, cfg.Security.BCryptCost)
	},
}

var permissionCatalogue = []struct {
	Name string
	Desc string
}{
	{rbac.PermCreateProject, "Can create projects"},
	{rbac.PermViewProject, "Can view projects"},
	{rbac.PermEditProject, "Can edit projects"},
	{rbac.PermDeleteProject, "Can delete projects"},
	{rbac.PermInviteMember, "Can invite project members"},
	{rbac.PermCreateTask, "Can create cards"},
	{rbac.PermViewTask, "Can view boards and cards"},
	{rbac.PermEditTask, "Can edit and move cards"},
	{rbac.PermDeleteTask, "Can delete cards"},
	{rbac.PermManageColumn, "Can manage board columns"},
	{rbac.PermViewRole, "Can view roles and permissions"},
	{rbac.PermManageRole, "Can manage roles and assignments"},
	{rbac.PermViewActivity, "Can view project activity"},
}

// rolePermissions maps each default role to its permission keys. The ALL
// marker is expanded to the full catalogue here, at seed time; authorization
// itself never interprets it.
var rolePermissions = map[string][]string{
	rbac.RoleAdmin: {rbac.PermissionAll},
	rbac.RoleManager: {
		rbac.PermCreateProject, rbac.PermViewProject, rbac.PermEditProject, rbac.PermDeleteProject,
		rbac.PermInviteMember, rbac.PermCreateTask, rbac.PermViewTask, rbac.PermEditTask,
		rbac.PermDeleteTask, rbac.PermManageColumn, rbac.PermViewRole, rbac.PermViewActivity,
	},
	rbac.RoleTeamlead: {
		rbac.PermViewProject, rbac.PermEditProject, rbac.PermInviteMember,
		rbac.PermCreateTask, rbac.PermViewTask, rbac.PermEditTask, rbac.PermDeleteTask,
		rbac.PermManageColumn, rbac.PermViewActivity,
	},
	rbac.RoleEmployee: {
		rbac.PermViewProject, rbac.PermCreateTask, rbac.PermViewTask, rbac.PermEditTask,
		rbac.PermViewActivity,
	},
}

var roleDescriptions = map[string]string{
	rbac.RoleAdmin:    "Full administrator",
	rbac.RoleManager:  "Manages projects and teams",
	rbac.RoleTeamlead: "Leads a project team",
	rbac.RoleEmployee: "Works on assigned cards",
}

func seedPermissions(db *gorm.DB) {
	for _, p := range permissionCatalogue {
		var pid int64
		row := db.Raw("SELECT id FROM permissions WHERE name = ?", p.Name).Row()
		if err := row.Scan(&pid); err != nil {
			if err := db.Exec("INSERT INTO permissions (name, description, is_active, created_at) VALUES (?, ?, true, now())", p.Name, p.Desc).Error; err != nil {
				log.Fatalf("failed to insert permission %s: %v", p.Name, err)
			}
		}
	}
	fmt.Println("Seeded permission catalogue:", len(permissionCatalogue), "permissions")
}

func seedRoles(db *gorm.DB) {
	for roleName, permKeys := range rolePermissions {
		var roleID int64
		row := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row()
		if err := row.Scan(&roleID); err != nil {
			if err := db.Exec("INSERT INTO roles (name, description, created_at, updated_at) VALUES (?, ?, now(), now())", roleName, roleDescriptions[roleName]).Error; err != nil {
				log.Fatalf("failed to insert role %s: %v", roleName, err)
			}
			if err := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row().Scan(&roleID); err != nil {
				log.Fatalf("role not found after insert %s: %v", roleName, err)
			}
		}

		keys := expandAll(permKeys)
		for _, key := range keys {
			var pid int64
			if err := db.Raw("SELECT id FROM permissions WHERE name = ?", key).Row().Scan(&pid); err != nil {
				log.Fatalf("permission not found %s: %v", key, err)
			}
			var exists int
			if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleID, pid).Row().Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES (?, ?, now())", roleID, pid).Error; err != nil {
				log.Fatalf("failed to grant permission %s to role %s: %v", key, roleName, err)
			}
		}
		fmt.Printf("Seeded role %s with %d permissions\n", roleName, len(keys))
	}
}

// expandAll replaces the ALL marker with every key in the catalogue.
func expandAll(keys []string) []string {
	for _, key := range keys {
		if key == rbac.PermissionAll {
			all := make([]string, 0, len(permissionCatalogue))
			for _, p := range permissionCatalogue {
				all = append(all, p.Name)
			}
			return all
		}
	}
	return keys
}

func seedUsers(db *gorm.DB, bcryptCost int) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcryptCost)

	users := []struct {
		Email string
		Name  string
		Role  string
	}{
		{"admin@taskboard.local", "Admin", rbac.RoleAdmin},
		{"manager@taskboard.local", "Manager", rbac.RoleManager},
		{"dev@taskboard.local", "Developer", rbac.RoleEmployee},
	}

	for _, u := range users {
		var uid int64
		row := db.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row()
		if err := row.Scan(&uid); err != nil {
			if err := db.Exec("INSERT INTO users (email, name, password_hash, is_verified, is_active, created_at, updated_at) VALUES (?, ?, ?, true, true, now(), now())", u.Email, u.Name, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			if err := db.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row().Scan(&uid); err != nil {
				log.Fatalf("user not found after insert %s: %v", u.Email, err)
			}
		}

		var roleID int64
		if err := db.Raw("SELECT id FROM roles WHERE name = ?", u.Role).Row().Scan(&roleID); err != nil {
			log.Fatalf("role not found %s: %v", u.Role, err)
		}

		var exists int
		if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", uid, roleID).Row().Scan(&exists); err == nil {
			continue
		}
		if err := db.Exec("INSERT INTO user_roles (user_id, role_id, granted_by, created_at) VALUES (?, ?, NULL, now())", uid, roleID).Error; err != nil {
			log.Fatalf("failed to grant role %s to %s: %v", u.Role, u.Email, err)
		}
		fmt.Printf("Seeded user %s with role %s\n", u.Email, u.Role)
	}
}

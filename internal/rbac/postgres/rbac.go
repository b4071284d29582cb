package postgres

import (
	"context"
	"errors"
	"time"

	rbacDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/rbac"
	userDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements rbac.RepositoryAPI using GORM
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetRoles(ctx context.Context) ([]*rbacDatamodel.Role, error) {
	var roles []*rbacDatamodel.Role
	err := r.db.WithContext(ctx).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *Repository) GetRoleByID(ctx context.Context, id int64) (*rbacDatamodel.Role, error) {
	var role rbacDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *Repository) CreateRole(ctx context.Context, role *rbacDatamodel.Role, permissionIDs []int64) error {
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(role).Error; err != nil {
			return err
		}
		return insertRolePermissions(tx, role.ID, permissionIDs)
	})
}

// UpdateRole saves the role row and, when permissionIDs is non-nil, replaces
// the permission set wholesale inside the same transaction.
func (r *Repository) UpdateRole(ctx context.Context, role *rbacDatamodel.Role, permissionIDs []int64) error {
	role.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(role).Error; err != nil {
			return err
		}
		if permissionIDs == nil {
			return nil
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		return insertRolePermissions(tx, role.ID, permissionIDs)
	})
}

// DeleteRole removes the role, its permission links, and every user_roles
// row referencing it, in one transaction.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&rbacDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&rbacDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&rbacDatamodel.Role{}).Error
	})
}

func (r *Repository) GetPermissions(ctx context.Context) ([]*rbacDatamodel.Permission, error) {
	var perms []*rbacDatamodel.Permission
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&perms).Error
	return perms, err
}

func (r *Repository) GetRolePermissions(ctx context.Context, roleID int64) ([]*rbacDatamodel.Permission, error) {
	var perms []*rbacDatamodel.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ?", roleID).
		Order("permissions.name ASC").
		Find(&perms).Error
	return perms, err
}

func (r *Repository) CountPermissionsByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&rbacDatamodel.Permission{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return count, err
}

func (r *Repository) AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertRolePermissions(tx, roleID, permissionIDs)
	})
}

func (r *Repository) RemoveRolePermission(ctx context.Context, roleID, permissionID int64) error {
	return r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&rbacDatamodel.RolePermission{}).Error
}

func (r *Repository) GetUserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&rbacDatamodel.Role{}).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.name ASC").
		Pluck("roles.name", &names).Error
	return names, err
}

// GetUserPermissionKeys walks user → roles → permissions in one query.
func (r *Repository) GetUserPermissionKeys(ctx context.Context, userID int64) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&rbacDatamodel.Permission{}).
		Distinct("permissions.name").
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ? AND permissions.is_active = ?", userID, true).
		Pluck("permissions.name", &keys).Error
	return keys, err
}

// AddUserRole is idempotent: the (user_id, role_id) pair is unique and a
// duplicate insert is ignored, keeping set semantics.
func (r *Repository) AddUserRole(ctx context.Context, userID, roleID int64, grantedBy *int64) error {
	rec := &rbacDatamodel.UserRole{
		UserID:    userID,
		RoleID:    roleID,
		GrantedBy: grantedBy,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "role_id"}},
		DoNothing: true,
	}).Create(rec).Error
}

func (r *Repository) RemoveUserRole(ctx context.Context, userID, roleID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&rbacDatamodel.UserRole{}).Error
}

func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

func insertRolePermissions(tx *gorm.DB, roleID int64, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]rbacDatamodel.RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		records = append(records, rbacDatamodel.RolePermission{
			RoleID:       roleID,
			PermissionID: pid,
			CreatedAt:    now,
		})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
		DoNothing: true,
	}).Create(&records).Error
}

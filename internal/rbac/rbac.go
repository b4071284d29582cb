package rbac

import (
	"time"

	rbacDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/rbac"
)

// Role names are a fixed vocabulary seeded at install time; administrators
// edit the permission sets, not the vocabulary.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleTeamlead = "teamlead"
	RoleEmployee = "employee"
)

// PermissionAll is expanded to every known permission id at seed time. It is
// never matched as a wildcard during authorization; the check stays a plain
// set membership test.
const PermissionAll = "ALL"

const (
	PermCreateProject = "CREATE_PROJECT"
	PermViewProject   = "VIEW_PROJECT"
	PermEditProject   = "EDIT_PROJECT"
	PermDeleteProject = "DELETE_PROJECT"
	PermInviteMember  = "INVITE_MEMBER"
	PermCreateTask    = "CREATE_TASK"
	PermViewTask      = "VIEW_TASK"
	PermEditTask      = "EDIT_TASK"
	PermDeleteTask    = "DELETE_TASK"
	PermManageColumn  = "MANAGE_COLUMN"
	PermViewRole      = "VIEW_ROLE"
	PermManageRole    = "MANAGE_ROLE"
	PermViewActivity  = "VIEW_ACTIVITY"
)

type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func PermissionFromDataModel(p *rbacDatamodel.Permission) Permission {
	return Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

func RoleFromDataModel(r *rbacDatamodel.Role, perms []*rbacDatamodel.Permission) Role {
	role := Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, p := range perms {
		role.Permissions = append(role.Permissions, PermissionFromDataModel(p))
	}
	return role
}

package rbac

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/taskboard/internal"
	rbacDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/rbac"
)

// RepositoryAPI is the persistence surface for roles, permissions and the
// user-role set.
type RepositoryAPI interface {
	GetRoles(ctx context.Context) ([]*rbacDatamodel.Role, error)
	GetRoleByID(ctx context.Context, id int64) (*rbacDatamodel.Role, error)
	CreateRole(ctx context.Context, role *rbacDatamodel.Role, permissionIDs []int64) error
	UpdateRole(ctx context.Context, role *rbacDatamodel.Role, permissionIDs []int64) error
	DeleteRole(ctx context.Context, id int64) error

	GetPermissions(ctx context.Context) ([]*rbacDatamodel.Permission, error)
	GetRolePermissions(ctx context.Context, roleID int64) ([]*rbacDatamodel.Permission, error)
	CountPermissionsByIDs(ctx context.Context, ids []int64) (int64, error)
	AddRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	RemoveRolePermission(ctx context.Context, roleID, permissionID int64) error

	GetUserRoleNames(ctx context.Context, userID int64) ([]string, error)
	GetUserPermissionKeys(ctx context.Context, userID int64) ([]string, error)
	AddUserRole(ctx context.Context, userID, roleID int64, grantedBy *int64) error
	RemoveUserRole(ctx context.Context, userID, roleID int64) error
	UserExists(ctx context.Context, userID int64) (bool, error)
}

// Service resolves principals to permission sets and manages the role
// catalogue. Resolution happens per request; nothing is cached across
// requests, so role edits take effect on the next call.
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

// ResolvePermissions returns the deduplicated union of permission keys
// across every role the user holds. A user with no roles resolves to the
// empty set; that is a valid, maximally restrictive state, not an error.
func (s *Service) ResolvePermissions(ctx context.Context, userID int64) ([]string, error) {
	keys, err := s.repo.GetUserPermissionKeys(ctx, userID)
	if err != nil {
		s.logger.Error("failed to resolve permissions", "error", err, "user_id", userID)
		return nil, err
	}

	seen := make(map[string]struct{}, len(keys))
	result := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result, nil
}

// ResolveRoles returns the names of the roles the user holds.
func (s *Service) ResolveRoles(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.GetUserRoleNames(ctx, userID)
}

// Authorize tests whether the user holds the required permission key.
// Fails closed: any resolution error or missing key denies.
func (s *Service) Authorize(ctx context.Context, userID int64, requiredKey string) (bool, error) {
	perms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == requiredKey {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	records, err := s.repo.GetRoles(ctx)
	if err != nil {
		return nil, err
	}

	roles := make([]Role, 0, len(records))
	for _, rec := range records {
		perms, err := s.repo.GetRolePermissions(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		roles = append(roles, RoleFromDataModel(rec, perms))
	}
	return roles, nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	rec, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, internal.ErrRoleNotFound
	}

	perms, err := s.repo.GetRolePermissions(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	role := RoleFromDataModel(rec, perms)
	return &role, nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	records, err := s.repo.GetPermissions(ctx)
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(records))
	for _, rec := range records {
		perms = append(perms, PermissionFromDataModel(rec))
	}
	return perms, nil
}

// validateReferences rejects permission ids that do not exist before any
// mutation commits.
func (s *Service) validateReferences(ctx context.Context, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	count, err := s.repo.CountPermissionsByIDs(ctx, permissionIDs)
	if err != nil {
		return err
	}
	if count != int64(len(permissionIDs)) {
		return internal.ErrInvalidReference
	}
	return nil
}

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateReferences(ctx, dto.PermissionIDs); err != nil {
		return nil, err
	}

	rec := &rbacDatamodel.Role{
		Name:        dto.Name,
		Description: dto.Description,
	}
	if err := s.repo.CreateRole(ctx, rec, dto.PermissionIDs); err != nil {
		s.logger.Error("failed to create role", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("role created", "role_id", rec.ID, "name", rec.Name, "permissions", len(dto.PermissionIDs))
	return s.GetRole(ctx, rec.ID)
}

func (s *Service) UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	rec, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, internal.ErrRoleNotFound
	}

	if err := s.validateReferences(ctx, dto.PermissionIDs); err != nil {
		return nil, err
	}

	if dto.Description != nil {
		rec.Description = *dto.Description
	}
	if err := s.repo.UpdateRole(ctx, rec, dto.PermissionIDs); err != nil {
		s.logger.Error("failed to update role", "error", err, "role_id", id)
		return nil, err
	}

	s.logger.Info("role updated", "role_id", id)
	return s.GetRole(ctx, id)
}

// DeleteRole removes the role and pulls its reference out of every user that
// held it, so no dangling role references survive.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	rec, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return internal.ErrRoleNotFound
	}

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		s.logger.Error("failed to delete role", "error", err, "role_id", id)
		return err
	}

	s.logger.Info("role deleted", "role_id", id, "name", rec.Name)
	return nil
}

func (s *Service) AddPermissions(ctx context.Context, roleID int64, dto AddPermissionsDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, internal.ErrRoleNotFound
	}

	if err := s.validateReferences(ctx, dto.PermissionIDs); err != nil {
		return nil, err
	}

	if err := s.repo.AddRolePermissions(ctx, roleID, dto.PermissionIDs); err != nil {
		s.logger.Error("failed to add role permissions", "error", err, "role_id", roleID)
		return nil, err
	}

	return s.GetRole(ctx, roleID)
}

func (s *Service) RemovePermission(ctx context.Context, roleID, permissionID int64) error {
	rec, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if rec == nil {
		return internal.ErrRoleNotFound
	}

	return s.repo.RemoveRolePermission(ctx, roleID, permissionID)
}

// AssignRole adds a role to the user's role set. Roles are always a set;
// assigning never replaces existing roles.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64, grantedBy *int64) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return internal.ErrUserNotFound
	}

	role, err := s.repo.GetRoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil {
		return internal.ErrRoleNotFound
	}

	if err := s.repo.AddUserRole(ctx, userID, roleID, grantedBy); err != nil {
		s.logger.Error("failed to assign role", "error", err, "user_id", userID, "role_id", roleID)
		return err
	}

	s.logger.Info("role assigned", "user_id", userID, "role_id", roleID, "role", role.Name)
	return nil
}

func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	if err := s.repo.RemoveUserRole(ctx, userID, roleID); err != nil {
		s.logger.Error("failed to revoke role", "error", err, "user_id", userID, "role_id", roleID)
		return err
	}

	s.logger.Info("role revoked", "user_id", userID, "role_id", roleID)
	return nil
}

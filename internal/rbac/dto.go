package rbac

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

type CreateRoleDTO struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PermissionIDs []int64 `json:"permission_ids"`
}

func (d CreateRoleDTO) Validate() error {
	if d.Name == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

type UpdateRoleDTO struct {
	Description   *string `json:"description,omitempty"`
	PermissionIDs []int64 `json:"permission_ids,omitempty"`
}

type AddPermissionsDTO struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (d AddPermissionsDTO) Validate() error {
	if len(d.PermissionIDs) == 0 {
		return ValidationError{Msg: "permission_ids is required"}
	}
	return nil
}

type AssignRoleDTO struct {
	RoleID int64 `json:"role_id"`
}

func (d AssignRoleDTO) Validate() error {
	if d.RoleID == 0 {
		return ValidationError{Msg: "role_id is required"}
	}
	return nil
}

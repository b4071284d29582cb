package project

import "strings"

// ValidationError represents a simple validation error from DTO validation.
type ValidationError struct {
	Msg string
}

func (v ValidationError) Error() string { return v.Msg }

type CreateProjectDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d CreateProjectDTO) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationError{Msg: "name is required"}
	}
	return nil
}

type UpdateProjectDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsArchived  *bool   `json:"is_archived,omitempty"`
}

func (d UpdateProjectDTO) Validate() error {
	if d.Name != nil && strings.TrimSpace(*d.Name) == "" {
		return ValidationError{Msg: "name cannot be empty"}
	}
	if d.Name == nil && d.Description == nil && d.IsArchived == nil {
		return ValidationError{Msg: "nothing to update"}
	}
	return nil
}

type InviteMemberDTO struct {
	Email string `json:"email"`
}

func (d InviteMemberDTO) Validate() error {
	if d.Email == "" {
		return ValidationError{Msg: "email is required"}
	}
	if !strings.Contains(d.Email, "@") {
		return ValidationError{Msg: "email is invalid"}
	}
	return nil
}

type AcceptInviteDTO struct {
	Token string `json:"token"`
}

func (d AcceptInviteDTO) Validate() error {
	if d.Token == "" {
		return ValidationError{Msg: "token is required"}
	}
	return nil
}

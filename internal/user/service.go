package user

import (
	"context"
	"fmt"

	"github.com/frahmantamala/taskboard/internal"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	UpdateProfile(ctx context.Context, userID int64, name, mobile *string) error
}

// AccessResolver provides role and permission resolution for a user.
type AccessResolver interface {
	ResolvePermissions(ctx context.Context, userID int64) ([]string, error)
	ResolveRoles(ctx context.Context, userID int64) ([]string, error)
}

type Service struct {
	repo     Repository
	resolver AccessResolver
}

func NewService(repo Repository, resolver AccessResolver) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
	}
}

// GetByID returns the user with roles and permissions resolved.
func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return nil, internal.ErrUserNotFound
	}

	perms, err := s.resolver.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user permissions: %w", err)
	}
	u.Permissions = perms

	roles, err := s.resolver.ResolveRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user roles: %w", err)
	}
	u.Roles = roles

	return u, nil
}

// UpdateProfile applies the profile changes and returns the refreshed user.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, dto.Name, dto.Mobile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.GetByID(ctx, userID)
}

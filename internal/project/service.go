package project

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/taskboard/internal"
	projectDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/project"
	"github.com/frahmantamala/taskboard/internal/core/events"
	"github.com/frahmantamala/taskboard/internal/mailer"
	"github.com/google/uuid"
)

// RepositoryAPI is the persistence surface for projects, memberships and
// invitations.
type RepositoryAPI interface {
	CreateProject(ctx context.Context, p *projectDatamodel.Project) error
	GetProjectByID(ctx context.Context, id int64) (*projectDatamodel.Project, error)
	GetProjectsForUser(ctx context.Context, userID int64) ([]*projectDatamodel.Project, error)
	UpdateProject(ctx context.Context, p *projectDatamodel.Project) error
	DeleteProject(ctx context.Context, id int64) error

	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
	ListMembers(ctx context.Context, projectID int64) ([]MemberInfo, error)
	AddMember(ctx context.Context, projectID, userID int64) error
	RemoveMember(ctx context.Context, projectID, userID int64) error

	CreateInvitation(ctx context.Context, inv *projectDatamodel.Invitation) error
	DeleteInvitation(ctx context.Context, id int64) error
	GetInvitationByToken(ctx context.Context, token string) (*projectDatamodel.Invitation, error)
	ListInvitations(ctx context.Context, projectID int64) ([]*projectDatamodel.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, token string) (bool, error)
}

type Service struct {
	repo          RepositoryAPI
	dispatcher    mailer.Dispatcher
	eventBus      *events.EventBus
	invitationTTL time.Duration
	logger        *slog.Logger
}

func NewService(repo RepositoryAPI, dispatcher mailer.Dispatcher, eventBus *events.EventBus, invitationTTL time.Duration, logger *slog.Logger) *Service {
	if invitationTTL <= 0 {
		invitationTTL = 72 * time.Hour
	}
	return &Service{
		repo:          repo,
		dispatcher:    dispatcher,
		eventBus:      eventBus,
		invitationTTL: invitationTTL,
		logger:        logger,
	}
}

// CreateProject creates the project and enrolls the creator as its first
// member.
func (s *Service) CreateProject(ctx context.Context, actorID int64, dto CreateProjectDTO) (*Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rec := &projectDatamodel.Project{
		Name:        dto.Name,
		Description: dto.Description,
		OwnerID:     actorID,
	}
	if err := s.repo.CreateProject(ctx, rec); err != nil {
		s.logger.Error("failed to create project", "error", err, "owner_id", actorID)
		return nil, err
	}

	s.publish(ctx, events.EventProjectCreated, rec.ID, actorID, "project", rec.ID, rec.Name)
	s.logger.Info("project created", "project_id", rec.ID, "owner_id", actorID)

	return FromDataModel(rec), nil
}

func (s *Service) ListProjects(ctx context.Context, userID int64) ([]*Project, error) {
	records, err := s.repo.GetProjectsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	projects := make([]*Project, 0, len(records))
	for _, rec := range records {
		projects = append(projects, FromDataModel(rec))
	}
	return projects, nil
}

// GetProject loads a project the user is a member of. Non-members get a
// not-found answer so project ids are not probeable.
func (s *Service) GetProject(ctx context.Context, userID, projectID int64) (*Project, error) {
	rec, err := s.memberProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	return FromDataModel(rec), nil
}

func (s *Service) UpdateProject(ctx context.Context, userID, projectID int64, dto UpdateProjectDTO) (*Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.memberProject(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		rec.Name = *dto.Name
	}
	if dto.Description != nil {
		rec.Description = *dto.Description
	}
	if dto.IsArchived != nil {
		rec.IsArchived = *dto.IsArchived
	}

	if err := s.repo.UpdateProject(ctx, rec); err != nil {
		s.logger.Error("failed to update project", "error", err, "project_id", projectID)
		return nil, err
	}

	s.publish(ctx, events.EventProjectUpdated, projectID, userID, "project", projectID, rec.Name)
	return FromDataModel(rec), nil
}

// DeleteProject removes the project and everything hanging off it. Only the
// owner may delete.
func (s *Service) DeleteProject(ctx context.Context, userID, projectID int64) error {
	rec, err := s.memberProject(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if rec.OwnerID != userID {
		return internal.ErrPermissionDenied
	}

	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		s.logger.Error("failed to delete project", "error", err, "project_id", projectID)
		return err
	}

	s.publish(ctx, events.EventProjectDeleted, projectID, userID, "project", projectID, rec.Name)
	s.logger.Info("project deleted", "project_id", projectID, "owner_id", userID)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, userID, projectID int64) ([]MemberInfo, error) {
	if _, err := s.memberProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, projectID)
}

// RemoveMember lets the owner remove anyone, and any member remove
// themselves. The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actorID, projectID, memberID int64) error {
	rec, err := s.memberProject(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if memberID == rec.OwnerID {
		return internal.ErrPermissionDenied
	}
	if actorID != rec.OwnerID && actorID != memberID {
		return internal.ErrPermissionDenied
	}

	if err := s.repo.RemoveMember(ctx, projectID, memberID); err != nil {
		s.logger.Error("failed to remove member", "error", err, "project_id", projectID, "member_id", memberID)
		return err
	}

	s.logger.Info("member removed", "project_id", projectID, "member_id", memberID, "actor_id", actorID)
	return nil
}

// InviteMember records the invitation and sends the invite mail
// synchronously. If the mail cannot be dispatched the invitation row is
// rolled back so a later retry starts clean.
func (s *Service) InviteMember(ctx context.Context, actorID, projectID int64, dto InviteMemberDTO) (*Invitation, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.memberProject(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	inv := &projectDatamodel.Invitation{
		ProjectID: projectID,
		Email:     dto.Email,
		Token:     uuid.NewString(),
		InvitedBy: actorID,
		ExpiresAt: time.Now().Add(s.invitationTTL),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		s.logger.Error("failed to create invitation", "error", err, "project_id", projectID, "email", dto.Email)
		return nil, err
	}

	subject := fmt.Sprintf("You have been invited to %s", rec.Name)
	body := fmt.Sprintf("You have been invited to join the project %q. Use invitation token %s to accept. The invitation expires at %s.",
		rec.Name, inv.Token, inv.ExpiresAt.UTC().Format(time.RFC3339))

	if err := s.dispatcher.Send(ctx, dto.Email, subject, body); err != nil {
		s.logger.Error("invite mail dispatch failed, rolling back invitation",
			"error", err, "project_id", projectID, "email", dto.Email)
		if delErr := s.repo.DeleteInvitation(ctx, inv.ID); delErr != nil {
			s.logger.Error("failed to roll back invitation", "error", delErr, "invitation_id", inv.ID)
		}
		return nil, internal.NewMailDispatchError(err)
	}

	s.publish(ctx, events.EventInviteSent, projectID, actorID, "invitation", inv.ID, dto.Email)
	s.logger.Info("invitation sent", "project_id", projectID, "email", dto.Email, "expires_at", inv.ExpiresAt)

	return InvitationFromDataModel(inv), nil
}

func (s *Service) ListInvitations(ctx context.Context, userID, projectID int64) ([]*Invitation, error) {
	if _, err := s.memberProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListInvitations(ctx, projectID)
	if err != nil {
		return nil, err
	}
	invs := make([]*Invitation, 0, len(records))
	for _, rec := range records {
		invs = append(invs, InvitationFromDataModel(rec))
	}
	return invs, nil
}

// AcceptInvitation redeems an invitation token for the authenticated user.
// The token is single use: acceptance is a conditional update and only the
// first caller wins.
func (s *Service) AcceptInvitation(ctx context.Context, userID int64, userEmail string, dto AcceptInviteDTO) (*Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.repo.GetInvitationByToken(ctx, dto.Token)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.AcceptedAt != nil {
		return nil, internal.ErrInviteNotFound
	}
	if inv.Email != userEmail {
		return nil, internal.ErrInviteNotFound
	}
	if !time.Now().Before(inv.ExpiresAt) {
		return nil, internal.ErrInviteExpired
	}

	accepted, err := s.repo.MarkInvitationAccepted(ctx, dto.Token)
	if err != nil {
		return nil, err
	}
	if !accepted {
		// another request consumed the token first
		return nil, internal.ErrInviteNotFound
	}

	if err := s.repo.AddMember(ctx, inv.ProjectID, userID); err != nil {
		s.logger.Error("failed to add member after invite", "error", err, "project_id", inv.ProjectID, "user_id", userID)
		return nil, err
	}

	rec, err := s.repo.GetProjectByID(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, internal.ErrProjectNotFound
	}

	s.publish(ctx, events.EventMemberJoined, inv.ProjectID, userID, "member", userID, userEmail)
	s.logger.Info("invitation accepted", "project_id", inv.ProjectID, "user_id", userID)

	return FromDataModel(rec), nil
}

// IsMember reports whether the user belongs to the project. Used by other
// domains to gate board and activity access.
func (s *Service) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	return s.repo.IsMember(ctx, projectID, userID)
}

// memberProject loads the project and verifies membership in one step.
func (s *Service) memberProject(ctx context.Context, userID, projectID int64) (*projectDatamodel.Project, error) {
	rec, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, internal.ErrProjectNotFound
	}

	member, err := s.repo.IsMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, internal.ErrProjectNotFound
	}
	return rec, nil
}

func (s *Service) publish(ctx context.Context, eventType string, projectID, actorID int64, entityType string, entityID int64, detail string) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events.NewActivityEvent(eventType, projectID, actorID, entityType, entityID, detail)); err != nil {
		s.logger.Error("failed to publish event", "error", err, "event_type", eventType)
	}
}

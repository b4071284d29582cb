package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/taskboard/internal/project"

	activityDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/activity"
	boardDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/board"
	projectDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/project"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements project.RepositoryAPI using GORM
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateProject inserts the project and the owner's membership row in one
// transaction.
func (r *Repository) CreateProject(ctx context.Context, p *projectDatamodel.Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		member := &projectDatamodel.Member{
			ProjectID: p.ID,
			UserID:    p.OwnerID,
			CreatedAt: now,
		}
		return tx.Create(member).Error
	})
}

func (r *Repository) GetProjectByID(ctx context.Context, id int64) (*projectDatamodel.Project, error) {
	var rec projectDatamodel.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) GetProjectsForUser(ctx context.Context, userID int64) ([]*projectDatamodel.Project, error) {
	var records []*projectDatamodel.Project
	err := r.db.WithContext(ctx).
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *Repository) UpdateProject(ctx context.Context, p *projectDatamodel.Project) error {
	p.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(p).Error
}

// DeleteProject removes the project with its memberships, invitations, board
// content and activity log in a single transaction.
func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&boardDatamodel.Card{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&boardDatamodel.Column{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&activityDatamodel.Entry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&projectDatamodel.Invitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&projectDatamodel.Member{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&projectDatamodel.Project{}).Error
	})
}

func (r *Repository) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&projectDatamodel.Member{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListMembers(ctx context.Context, projectID int64) ([]project.MemberInfo, error) {
	var members []project.MemberInfo
	err := r.db.WithContext(ctx).Model(&projectDatamodel.Member{}).
		Select("project_members.user_id, users.email, users.name, project_members.created_at AS joined_at").
		Joins("JOIN users ON users.id = project_members.user_id").
		Where("project_members.project_id = ?", projectID).
		Order("project_members.created_at ASC").
		Scan(&members).Error
	return members, err
}

// AddMember is idempotent on the (project_id, user_id) pair.
func (r *Repository) AddMember(ctx context.Context, projectID, userID int64) error {
	member := &projectDatamodel.Member{
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
}

func (r *Repository) RemoveMember(ctx context.Context, projectID, userID int64) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&projectDatamodel.Member{}).Error
}

func (r *Repository) CreateInvitation(ctx context.Context, inv *projectDatamodel.Invitation) error {
	inv.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *Repository) DeleteInvitation(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&projectDatamodel.Invitation{}).Error
}

func (r *Repository) GetInvitationByToken(ctx context.Context, token string) (*projectDatamodel.Invitation, error) {
	var rec projectDatamodel.Invitation
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) ListInvitations(ctx context.Context, projectID int64) ([]*projectDatamodel.Invitation, error) {
	var records []*projectDatamodel.Invitation
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// MarkInvitationAccepted consumes the token with a conditional update so only
// the first acceptor succeeds.
func (r *Repository) MarkInvitationAccepted(ctx context.Context, token string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&projectDatamodel.Invitation{}).
		Where("token = ? AND accepted_at IS NULL", token).
		Update("accepted_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

package project

import "time"

type Project struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	OwnerID     int64     `gorm:"column:owner_id;not null"`
	IsArchived  bool      `gorm:"column:is_archived;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

func (Project) TableName() string {
	return "projects"
}

type Member struct {
	ID        int64     `gorm:"primaryKey"`
	ProjectID int64     `gorm:"column:project_id;not null;uniqueIndex:idx_project_member"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:idx_project_member"`
	CreatedAt time.Time `gorm:"column:created_at;default:now()"`
}

func (Member) TableName() string {
	return "project_members"
}

type Invitation struct {
	ID         int64      `gorm:"primaryKey"`
	ProjectID  int64      `gorm:"column:project_id;not null"`
	Email      string     `gorm:"column:email;not null"`
	Token      string     `gorm:"column:token;uniqueIndex;not null"`
	InvitedBy  int64      `gorm:"column:invited_by;not null"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	AcceptedAt *time.Time `gorm:"column:accepted_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;default:now()"`
}

func (Invitation) TableName() string {
	return "project_invitations"
}

package activity

import "time"

type Entry struct {
	ID         int64     `gorm:"primaryKey"`
	ProjectID  int64     `gorm:"column:project_id;not null;index"`
	ActorID    int64     `gorm:"column:actor_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	EntityType string    `gorm:"column:entity_type;not null"`
	EntityID   int64     `gorm:"column:entity_id"`
	Detail     string    `gorm:"column:detail"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
}

func (Entry) TableName() string {
	return "activities"
}

package postgres

import (
	"context"
	"time"

	activityDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/activity"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, entry *activityDatamodel.Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) ListByProject(ctx context.Context, projectID int64, limit, offset int) ([]*activityDatamodel.Entry, error) {
	var records []*activityDatamodel.Entry
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

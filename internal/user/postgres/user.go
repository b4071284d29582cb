package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/taskboard/internal/user"

	userDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	var rec userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user.FromDataModel(&rec), nil
}

func (r *Repository) UpdateProfile(ctx context.Context, userID int64, name, mobile *string) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if name != nil {
		updates["name"] = *name
	}
	if mobile != nil {
		updates["mobile"] = *mobile
	}

	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

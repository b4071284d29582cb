package postgres

import (
	"context"
	"errors"
	"time"

	boardDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/board"
	"gorm.io/gorm"
)

// Repository implements board.RepositoryAPI using GORM. Column and card
// positions are 1-based and contiguous per container; every mutation that
// touches ordering runs in a transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateColumn(ctx context.Context, col *boardDatamodel.Column) error {
	now := time.Now()
	col.CreatedAt = now
	col.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&boardDatamodel.Column{}).
			Where("project_id = ?", col.ProjectID).
			Count(&count).Error; err != nil {
			return err
		}
		col.Position = int(count) + 1
		return tx.Create(col).Error
	})
}

func (r *Repository) GetColumnByID(ctx context.Context, id int64) (*boardDatamodel.Column, error) {
	var rec boardDatamodel.Column
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) ListColumns(ctx context.Context, projectID int64) ([]*boardDatamodel.Column, error) {
	var records []*boardDatamodel.Column
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&records).Error
	return records, err
}

func (r *Repository) RenameColumn(ctx context.Context, id int64, name string) error {
	return r.db.WithContext(ctx).Model(&boardDatamodel.Column{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":       name,
			"updated_at": time.Now(),
		}).Error
}

// DeleteColumn drops the column and its cards, then shifts later columns
// left so positions stay contiguous.
func (r *Repository) DeleteColumn(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var col boardDatamodel.Column
		if err := tx.Where("id = ?", id).First(&col).Error; err != nil {
			return err
		}
		if err := tx.Where("column_id = ?", id).Delete(&boardDatamodel.Card{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&boardDatamodel.Column{}).Error; err != nil {
			return err
		}
		return tx.Model(&boardDatamodel.Column{}).
			Where("project_id = ? AND position > ?", col.ProjectID, col.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}

func (r *Repository) ReorderColumns(ctx context.Context, projectID int64, orderedIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, id := range orderedIDs {
			err := tx.Model(&boardDatamodel.Column{}).
				Where("id = ? AND project_id = ?", id, projectID).
				Updates(map[string]interface{}{
					"position":   idx + 1,
					"updated_at": time.Now(),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) CreateCard(ctx context.Context, card *boardDatamodel.Card) error {
	now := time.Now()
	card.CreatedAt = now
	card.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&boardDatamodel.Card{}).
			Where("column_id = ?", card.ColumnID).
			Count(&count).Error; err != nil {
			return err
		}
		card.Position = int(count) + 1
		return tx.Create(card).Error
	})
}

func (r *Repository) GetCardByID(ctx context.Context, id int64) (*boardDatamodel.Card, error) {
	var rec boardDatamodel.Card
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repository) ListCards(ctx context.Context, projectID int64) ([]*boardDatamodel.Card, error) {
	var records []*boardDatamodel.Card
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("column_id ASC, position ASC").
		Find(&records).Error
	return records, err
}

func (r *Repository) UpdateCard(ctx context.Context, card *boardDatamodel.Card) error {
	card.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(card).Error
}

// DeleteCard removes the card and closes the position gap in its column.
func (r *Repository) DeleteCard(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card boardDatamodel.Card
		if err := tx.Where("id = ?", id).First(&card).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&boardDatamodel.Card{}).Error; err != nil {
			return err
		}
		return tx.Model(&boardDatamodel.Card{}).
			Where("column_id = ? AND position > ?", card.ColumnID, card.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
}

// MoveCard pulls the card out of its current slot and inserts it at the
// requested position in the target column. The position is clamped to the
// end of the target column. Both columns are resequenced in one transaction.
func (r *Repository) MoveCard(ctx context.Context, cardID, toColumnID int64, position int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card boardDatamodel.Card
		if err := tx.Where("id = ?", cardID).First(&card).Error; err != nil {
			return err
		}

		// close the gap in the source column
		if err := tx.Model(&boardDatamodel.Card{}).
			Where("column_id = ? AND position > ?", card.ColumnID, card.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&boardDatamodel.Card{}).
			Where("column_id = ? AND id <> ?", toColumnID, cardID).
			Count(&count).Error; err != nil {
			return err
		}
		if position > int(count)+1 {
			position = int(count) + 1
		}
		if position < 1 {
			position = 1
		}

		// open a slot in the target column
		if err := tx.Model(&boardDatamodel.Card{}).
			Where("column_id = ? AND position >= ? AND id <> ?", toColumnID, position, cardID).
			UpdateColumn("position", gorm.Expr("position + 1")).Error; err != nil {
			return err
		}

		return tx.Model(&boardDatamodel.Card{}).
			Where("id = ?", cardID).
			Updates(map[string]interface{}{
				"column_id":  toColumnID,
				"position":   position,
				"updated_at": time.Now(),
			}).Error
	})
}

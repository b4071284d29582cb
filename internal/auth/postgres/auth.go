package postgres

import (
	"context"
	"errors"
	"time"

	otpDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/otp"
	userDatamodel "github.com/frahmantamala/taskboard/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository implements auth.UserRepository using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) MarkVerified(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"is_verified": true,
			"updated_at":  time.Now(),
		}).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		}).Error
}

// OtpRepository implements auth.OtpRepository using GORM
type OtpRepository struct {
	db *gorm.DB
}

func NewOtpRepository(db *gorm.DB) *OtpRepository {
	return &OtpRepository{db: db}
}

// Upsert writes the newest code for (email, purpose), replacing any prior
// record including its consumed marker.
func (r *OtpRepository) Upsert(ctx context.Context, record *otpDatamodel.Code) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}, {Name: "purpose"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"code":        record.Code,
			"expires_at":  record.ExpiresAt,
			"consumed_at": nil,
			"updated_at":  record.UpdatedAt,
		}),
	}).Create(record).Error
}

func (r *OtpRepository) Get(ctx context.Context, email, purpose string) (*otpDatamodel.Code, error) {
	var rec otpDatamodel.Code
	err := r.db.WithContext(ctx).
		Where("email = ? AND purpose = ?", email, purpose).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Consume marks the record used in a single conditional update. The WHERE
// clause matches code and unconsumed state, so of two racing verify calls
// only one sees RowsAffected == 1.
func (r *OtpRepository) Consume(ctx context.Context, email, purpose, code string) (bool, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&otpDatamodel.Code{}).
		Where("email = ? AND purpose = ? AND code = ? AND consumed_at IS NULL", email, purpose, code).
		Updates(map[string]interface{}{
			"consumed_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OtpRepository) Delete(ctx context.Context, email, purpose string) error {
	return r.db.WithContext(ctx).
		Where("email = ? AND purpose = ?", email, purpose).
		Delete(&otpDatamodel.Code{}).Error
}

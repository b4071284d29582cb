package otp

import "time"

// Code is one issued one-time code. At most one row exists per
// (email, purpose); re-issuing overwrites the previous row so only the
// newest code is ever valid.
type Code struct {
	ID         int64      `gorm:"primaryKey"`
	Email      string     `gorm:"column:email;not null;uniqueIndex:idx_otp_email_purpose"`
	Purpose    string     `gorm:"column:purpose;not null;uniqueIndex:idx_otp_email_purpose"`
	Code       string     `gorm:"column:code;not null"`
	ExpiresAt  time.Time  `gorm:"column:expires_at;not null"`
	ConsumedAt *time.Time `gorm:"column:consumed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;default:now()"`
}

func (Code) TableName() string {
	return "otp_codes"
}

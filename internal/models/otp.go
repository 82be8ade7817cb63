package models

import (
	"time"
)

// OTP is a one-time passcode issued to a user. Rows are kept as history and
// expire by age rather than by deletion.
type OTP struct {
	ID       uint       `json:"id" gorm:"primaryKey"`
	UserID   uint       `json:"user_id" gorm:"not null;index:idx_otps_user_issued,priority:1"`
	User     *User      `json:"-" gorm:"foreignKey:UserID"`
	Code     string     `json:"-" gorm:"size:6;not null"`
	IssuedAt time.Time  `json:"issued_at" gorm:"not null;index:idx_otps_user_issued,priority:2"`
	UsedAt   *time.Time `json:"used_at,omitempty"`
}

// TableName specifies the table name
func (OTP) TableName() string {
	return "otps"
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User holds at most one outstanding OTP. PasswordNonce is set when a code
// is exchanged for a password-change token and cleared when that token is
// spent.
type User struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string     `gorm:"type:varchar(255);not null" json:"name"`
	Email         *string    `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	Phone         *string    `gorm:"type:varchar(20);uniqueIndex" json:"phone,omitempty"`
	Password      string     `gorm:"type:varchar(255);not null" json:"-"`
	OTP           *string    `gorm:"column:otp;type:varchar(6)" json:"-"`
	OTPExpires    *time.Time `gorm:"column:otp_expires" json:"-"`
	OTPAttempts   int        `gorm:"column:otp_attempts;not null;default:0" json:"-"`
	PasswordNonce *string    `gorm:"column:password_nonce;type:varchar(36)" json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasPendingOTP reports whether a code is stored and still valid at now.
func (u *User) HasPendingOTP(now time.Time) bool {
	return u.OTP != nil && u.OTPExpires != nil && now.Before(*u.OTPExpires)
}

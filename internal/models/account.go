package models

import (
	"strings"
	"time"
)

// Account - учетная запись участника конференции.
// Email хранится в нижнем регистре, сравнение регистронезависимое.
type Account struct {
	BaseModel
	Username     string `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255)" json:"-"`
	IsFederated  bool   `gorm:"default:false" json:"isFederated"`
	Verified     bool   `gorm:"default:false;not null" json:"verified"`

	// Ожидающий токен подтверждения email (одноразовый)
	VerificationToken   *string    `gorm:"type:varchar(128);index" json:"-"`
	VerificationExpires *time.Time `json:"-"`

	// Ожидающий код сброса пароля (одноразовый)
	ResetOTP        *string    `gorm:"column:reset_otp;type:varchar(16)" json:"-"`
	ResetOTPExpires *time.Time `gorm:"column:reset_otp_expires" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// VerificationExpired сообщает, истек ли ожидающий токен на момент now
func (a *Account) VerificationExpired(now time.Time) bool {
	return a.VerificationExpires == nil || !a.VerificationExpires.After(now)
}

// NormalizeEmail приводит email к каноническому виду
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameFromEmail - локальная часть адреса
func UsernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	return local
}

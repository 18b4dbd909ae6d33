package dto

import (
	"time"

	"conference_backend/internal/models"
)

// SignupRequest - запрос регистрации
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailTokenRequest - пара token+email (устаревший транспорт)
type VerifyEmailTokenRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// EmailRequest - запросы, где нужен только email (forgot, resend)
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest - сброс пароля по OTP
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,otp"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// SignupResult - итог регистрации. EmailSent=false - письмо не ушло, аккаунт создан.
type SignupResult struct {
	Account   *models.Account
	EmailSent bool
}

// ResendResult - итог повторной отправки письма подтверждения
type ResendResult struct {
	EmailSent bool
}

// LoginResult - итог входа. Для неподтвержденного аккаунта токена нет.
type LoginResult struct {
	Token             string
	ExpiresAt         time.Time
	Email             string
	Username          string
	UserID            string
	NeedsVerification bool
}

// PendingToken - запись для отладочного списка токенов подтверждения
type PendingToken struct {
	Email       string    `json:"email"`
	TokenLength int       `json:"tokenLength"`
	Expires     time.Time `json:"expires"`
	IsExpired   bool      `json:"isExpired"`
}

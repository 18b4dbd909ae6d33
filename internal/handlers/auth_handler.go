package handlers

import (
	"net/http"

	"conference_backend/internal/services"
	"conference_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

const (
	msgSignupOK          = "Account created. Please check your email to verify your account."
	msgSignupEmailFailed = "Account created, but we couldn't send a verification email. Please contact support."
	msgVerified          = "Email verified successfully. You can now log in."
	msgNeedsVerification = "Please verify your email before logging in"
	msgOTPSent           = "OTP sent to your email"
	msgPasswordReset     = "Password reset successful"
	msgVerificationSent  = "Verification email sent. Please check your inbox."
	msgResendEmailFailed = "A new verification link was created, but we couldn't send the email. Please try again later."
	msgProtected         = "You have access to protected data"
)

// MessageResponse - {success, message}
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginResponse - ответ /login. Для неподтвержденного аккаунта токена нет.
type LoginResponse struct {
	Success           bool   `json:"success"`
	Verified          bool   `json:"verified"`
	NeedsVerification bool   `json:"needsVerification,omitempty"`
	Message           string `json:"message,omitempty"`
	Token             string `json:"token,omitempty"`
	Email             string `json:"email,omitempty"`
	Username          string `json:"username,omitempty"`
}

type AuthHandler struct {
	*BaseHandler
	authService services.AuthService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
	}
}

// Signup godoc
// @Summary Регистрация
// @Description Создает неподтвержденный аккаунт и отправляет письмо со ссылкой подтверждения
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Email и пароль"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /signin [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.Signup(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	message := msgSignupOK
	if !result.EmailSent {
		message = msgSignupEmailFailed
	}
	c.JSON(http.StatusCreated, MessageResponse{Success: true, Message: message})
}

// VerifyEmail godoc
// @Summary Подтверждение email по ссылке
// @Tags auth
// @Produce json
// @Param token query string true "Токен подтверждения"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if _, err := h.authService.VerifyEmail(c.Request.Context(), h.GetDB(c), c.Query("token")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: msgVerified})
}

// VerifyEmailToken godoc
// @Summary Подтверждение email парой token+email
// @Description Устаревший транспорт, ведет к тому же подтверждению
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyEmailTokenRequest true "Токен и email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /verify-email-token [post]
func (h *AuthHandler) VerifyEmailToken(c *gin.Context) {
	var req dto.VerifyEmailTokenRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if _, err := h.authService.VerifyEmailWithEmail(c.Request.Context(), h.GetDB(c), req.Token, req.Email); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: msgVerified})
}

// VerifyPayload godoc
// @Summary Подтверждение по base64-ссылке
// @Description Устаревший формат ссылки: base64(JSON{token,email,timestamp})
// @Tags auth
// @Produce json
// @Param data query string true "Закодированные данные"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /verify [get]
func (h *AuthHandler) VerifyPayload(c *gin.Context) {
	if _, err := h.authService.VerifyEmailPayload(c.Request.Context(), h.GetDB(c), c.Query("data")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: msgVerified})
}

// Login godoc
// @Summary Вход
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Email и пароль"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if result.NeedsVerification {
		c.JSON(http.StatusOK, LoginResponse{
			Success:           false,
			Verified:          false,
			NeedsVerification: true,
			Message:           msgNeedsVerification,
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:  true,
		Verified: true,
		Token:    result.Token,
		Email:    result.Email,
		Username: result.Username,
	})
}

// ForgotPassword godoc
// @Summary Запрос OTP для сброса пароля
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.EmailRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), h.GetDB(c), req.Email); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: msgOTPSent})
}

// ResetPassword godoc
// @Summary Сброс пароля по OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Email, OTP и новый пароль"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), h.GetDB(c), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: msgPasswordReset})
}

// ResendVerification godoc
// @Summary Повторная отправка письма подтверждения
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /resend-verification [post]
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.EmailRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.ResendVerification(c.Request.Context(), h.GetDB(c), req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	message := msgVerificationSent
	if !result.EmailSent {
		message = msgResendEmailFailed
	}
	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: message})
}

// Protected godoc
// @Summary Проверка сессии
// @Tags auth
// @Produce json
// @Security SessionToken
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /protected [get]
func (h *AuthHandler) Protected(c *gin.Context) {
	claims, ok := h.GetSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": msgProtected,
		"user":    claims,
	})
}

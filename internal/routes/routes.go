package routes

import (
	"conference_backend/internal/auth"
	"conference_backend/internal/handlers"
	"conference_backend/internal/logger"
	"conference_backend/internal/metrics"
	"conference_backend/internal/middleware"
	"conference_backend/internal/ratelimit"

	_ "conference_backend/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options - зависимости, нужные только для маршрутизации
type Options struct {
	Tokens  *auth.TokenManager
	Limiter ratelimit.Limiter // nil - без ограничения частоты
	Metrics *metrics.Metrics

	// Debug включает /debug/tokens и swagger
	Debug bool

	// UploadsDir - каталог локального хранилища, раздается как /uploads
	UploadsDir string
}

// RegisterRoutes регистрирует все HTTP маршруты.
func RegisterRoutes(r *gin.Engine, h *handlers.AppHandlers, opts Options) {
	guard := middleware.SessionGuard(opts.Tokens)

	limited := []gin.HandlerFunc{}
	if opts.Limiter != nil {
		limited = append(limited, middleware.RateLimit(opts.Limiter, opts.Metrics))
	}
	post := func(path string, handler gin.HandlerFunc) {
		chain := make([]gin.HandlerFunc, 0, len(limited)+1)
		chain = append(chain, limited...)
		r.POST(path, append(chain, handler)...)
	}

	// Аккаунты
	post("/signin", h.AuthHandler.Signup)
	post("/login", h.AuthHandler.Login)
	post("/forgot-password", h.AuthHandler.ForgotPassword)
	post("/reset-password", h.AuthHandler.ResetPassword)
	post("/resend-verification", h.AuthHandler.ResendVerification)
	post("/verify-email-token", h.AuthHandler.VerifyEmailToken)
	r.GET("/verify-email", h.AuthHandler.VerifyEmail)
	r.GET("/verify", h.AuthHandler.VerifyPayload)
	r.GET("/protected", guard, h.AuthHandler.Protected)

	// Доклады
	r.POST("/submit-paper", middleware.OptionalSession(opts.Tokens), h.SubmissionHandler.SubmitPaper)
	r.GET("/user-submission", guard, h.SubmissionHandler.UserSubmission)
	r.GET("/user-submissions", guard, h.SubmissionHandler.UserSubmissions)

	// Служебные
	r.GET("/healthz", h.SystemHandler.Health)
	r.GET("/collections", h.SystemHandler.Collections)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	if opts.UploadsDir != "" {
		r.Static("/uploads", opts.UploadsDir)
	}

	if opts.Debug {
		r.GET("/debug/tokens", h.SystemHandler.DebugTokens)
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		logger.Info("Debug routes registered", "routes", []string{"/debug/tokens", "/swagger/*any"})
	}
}

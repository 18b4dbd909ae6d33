package app

import (
	"context"
	"fmt"
	"time"

	"conference_backend/database"
	"conference_backend/internal/auth"
	"conference_backend/internal/config"
	"conference_backend/internal/email"
	"conference_backend/internal/handlers"
	"conference_backend/internal/logger"
	"conference_backend/internal/metrics"
	"conference_backend/internal/middleware"
	"conference_backend/internal/ratelimit"
	"conference_backend/internal/repositories"
	"conference_backend/internal/routes"
	"conference_backend/internal/services"
	"conference_backend/internal/storage"
	"conference_backend/internal/validator"
	"conference_backend/internal/workers"
	"conference_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Infrastructure - внешние зависимости сервисов
type Infrastructure struct {
	Storage  storage.Storage
	Notifier email.Notifier
	Metrics  *metrics.Metrics
	Tokens   *auth.TokenManager
	Limiter  ratelimit.Limiter
}

func (i *Infrastructure) Close() {
	if i.Limiter != nil {
		if err := i.Limiter.Close(); err != nil {
			logger.Warn("Failed to close rate limiter", "error", err)
		}
	}
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(!cfg.IsProduction())
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}

	infra, err := InitializeInfrastructure(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize infrastructure", "error", err)
	}
	defer infra.Close()

	serviceContainer, err := InitializeServices(cfg, infra)
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	sweepEvery := time.Duration(cfg.Workers.OTPSweepMinutes) * time.Minute
	workers.NewOTPSweeper(gormDB, repositories.NewAccountRepository(), sweepEvery).Start(workerCtx)
	logger.Info("Background workers started", "otp_sweep_interval", sweepEvery)

	ginRouter := SetupRouter(cfg, gormDB, infra, serviceContainer)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// InitializeInfrastructure поднимает хранилище, почту, метрики и лимитер
func InitializeInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	storageInstance, err := storage.NewStorage(ctx, storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	notifier, err := initializeNotifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("init email: %w", err)
	}

	infra := &Infrastructure{
		Storage:  storageInstance,
		Notifier: notifier,
		Metrics:  metrics.NewDefault(),
		Tokens:   auth.NewTokenManager(cfg.JWT.Secret, cfg.SessionTTL()),
	}

	if cfg.RateLimit.Enabled {
		infra.Limiter, err = ratelimit.New(ratelimit.Config{
			Backend:   cfg.RateLimit.Backend,
			RedisURL:  cfg.RateLimit.RedisURL,
			PerMinute: cfg.RateLimit.PerMinute,
			Burst:     cfg.RateLimit.Burst,
		})
		if err != nil {
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
		logger.Info("Rate limiter initialized", "backend", cfg.RateLimit.Backend, "per_minute", cfg.RateLimit.PerMinute)
	}

	return infra, nil
}

func initializeNotifier(cfg *config.Config) (email.Notifier, error) {
	templates, err := email.NewDefaultTemplateManager(cfg.Email.TemplatesDir)
	if err != nil {
		return nil, err
	}

	var provider email.Provider
	if cfg.Email.Enabled {
		provider = email.NewSMTPProvider(&email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			UseSSL:    cfg.Email.UseSSL,
		})
		if err := provider.Validate(); err != nil {
			return nil, err
		}
	} else {
		logger.Warn("Email delivery disabled, messages are only logged")
		provider = email.NewLogProvider()
	}

	return email.NewMailer(provider, templates, cfg.Email.FromEmail), nil
}

func InitializeServices(cfg *config.Config, infra *Infrastructure) (*services.ServiceContainer, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHasher)
	if err != nil {
		return nil, err
	}

	// --- Репозитории ---
	accountRepo := repositories.NewAccountRepository()
	submissionRepo := repositories.NewSubmissionRepository()

	// --- Сервисы ---
	authService := services.NewAuthService(
		accountRepo,
		services.NewTokenIssuer(),
		hasher,
		infra.Tokens,
		infra.Notifier,
		infra.Metrics,
		services.AuthPolicy{
			FrontendURL:            cfg.Frontend.URL,
			MinPasswordLength:      cfg.Auth.MinPasswordLength,
			DistinguishLoginErrors: cfg.Auth.DistinguishLoginErrors,
			RollbackOnEmailFailure: cfg.Auth.RollbackOnEmailFailure,
		},
	)
	submissionService := services.NewSubmissionService(
		submissionRepo,
		infra.Storage,
		infra.Metrics,
		services.UploadPolicy{
			MaxSize:      cfg.Upload.MaxSize,
			AllowedTypes: cfg.Upload.AllowedTypes,
		},
	)

	return &services.ServiceContainer{
		AuthService:       authService,
		SubmissionService: submissionService,
	}, nil
}

func initializeHandlers(svc *services.ServiceContainer) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New())

	return &handlers.AppHandlers{
		AuthHandler:       handlers.NewAuthHandler(baseHandler, svc.AuthService),
		SubmissionHandler: handlers.NewSubmissionHandler(baseHandler, svc.SubmissionService),
		SystemHandler:     handlers.NewSystemHandler(baseHandler, svc.AuthService, svc.SubmissionService),
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB, infra *Infrastructure, svc *services.ServiceContainer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	appHandlers := initializeHandlers(svc)
	ginRouter := initializeGinRouter(cfg, gormDB, infra.Metrics)

	opts := routes.Options{
		Tokens:  infra.Tokens,
		Limiter: infra.Limiter,
		Metrics: infra.Metrics,
		Debug:   !cfg.IsProduction(),
	}
	if local, ok := infra.Storage.(*storage.LocalStorage); ok {
		opts.UploadsDir = local.BasePath()
	}
	routes.RegisterRoutes(ginRouter, appHandlers, opts)

	return ginRouter
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(m.GinMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}

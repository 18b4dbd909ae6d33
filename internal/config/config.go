package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Server struct {
		Host string `yaml:"host" env:"SERVER_HOST"`
		Port int    `yaml:"port" env:"PORT"`
		Env  string `yaml:"env" env:"SERVER_ENV"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver" env:"DATABASE_DRIVER"` // postgres, mysql
		DSN    string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"database"`

	Email struct {
		Enabled      bool   `yaml:"enabled" env:"EMAIL_ENABLED"`
		SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
		SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
		SMTPUsername string `yaml:"smtp_user" env:"EMAIL_USER"`
		SMTPPassword string `yaml:"smtp_password" env:"EMAIL_PASS"`
		FromEmail    string `yaml:"from_email" env:"EMAIL_FROM"`
		FromName     string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
		UseSSL       bool   `yaml:"use_ssl" env:"SMTP_SSL"`
		TemplatesDir string `yaml:"templates_dir" env:"EMAIL_TEMPLATES_DIR"`
	} `yaml:"email"`

	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
		TTL    int    `yaml:"ttl" env:"JWT_TTL_HOURS"` // часы
	} `yaml:"jwt"`

	Frontend struct {
		URL string `yaml:"url" env:"FRONTEND_URL"`
	} `yaml:"frontend"`

	Auth struct {
		// Различать "нет такого аккаунта" и "неверный пароль" в ответе /login
		DistinguishLoginErrors bool `yaml:"distinguish_login_errors" env:"AUTH_DISTINGUISH_LOGIN_ERRORS"`
		// Удалять аккаунт, если письмо верификации не ушло
		RollbackOnEmailFailure bool   `yaml:"rollback_on_email_failure" env:"AUTH_ROLLBACK_ON_EMAIL_FAILURE"`
		PasswordHasher         string `yaml:"password_hasher" env:"AUTH_PASSWORD_HASHER"` // bcrypt, argon2id
		MinPasswordLength      int    `yaml:"min_password_length" env:"AUTH_MIN_PASSWORD_LENGTH"`
	} `yaml:"auth"`

	Storage struct {
		Type      string `yaml:"type" env:"STORAGE_TYPE"`           // local, minio, s3
		BasePath  string `yaml:"base_path" env:"STORAGE_BASE_PATH"` // For local storage
		BaseURL   string `yaml:"base_url" env:"STORAGE_BASE_URL"`   // Public URL base
		Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET"`
		Region    string `yaml:"region" env:"STORAGE_REGION"`
		AccessKey string `yaml:"access_key" env:"STORAGE_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"STORAGE_SECRET_KEY"`
		Endpoint  string `yaml:"endpoint" env:"STORAGE_ENDPOINT"`
		UseSSL    bool   `yaml:"use_ssl" env:"STORAGE_USE_SSL"`
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64    `yaml:"max_size" env:"UPLOAD_MAX_SIZE"` // bytes
		AllowedTypes []string `yaml:"allowed_types" env:"UPLOAD_ALLOWED_TYPES" envSeparator:","`
	} `yaml:"upload"`

	RateLimit struct {
		Enabled   bool   `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
		Backend   string `yaml:"backend" env:"RATE_LIMIT_BACKEND"` // memory, redis
		RedisURL  string `yaml:"redis_url" env:"REDIS_URL"`
		PerMinute int    `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE"`
		Burst     int    `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	Workers struct {
		OTPSweepMinutes int `yaml:"otp_sweep_minutes" env:"OTP_SWEEP_MINUTES"`
	} `yaml:"workers"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"cors"`
}

var AppConfig *Config

// LoadConfig загружает конфиг в глобальную переменную, при ошибке завершает процесс
func LoadConfig() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Load читает YAML (если файл есть), затем накладывает переменные окружения.
// Явно указанный путь обязан существовать; файл по умолчанию - нет.
func Load(path string) (*Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	if err := loadFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file at %s: %w", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file at %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.JWT.TTL == 0 {
		c.JWT.TTL = 24
	}
	if c.Frontend.URL == "" {
		c.Frontend.URL = "http://localhost:5173"
	}
	if c.Auth.PasswordHasher == "" {
		c.Auth.PasswordHasher = "bcrypt"
	}
	if c.Auth.MinPasswordLength == 0 {
		c.Auth.MinPasswordLength = 6
	}
	if c.Email.SMTPHost == "" {
		c.Email.SMTPHost = "smtp.gmail.com"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromEmail == "" {
		c.Email.FromEmail = c.Email.SMTPUsername
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.BasePath == "" {
		c.Storage.BasePath = "./uploads"
	}
	if c.Upload.MaxSize == 0 {
		c.Upload.MaxSize = 10 << 20
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		}
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 30
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if c.Workers.OTPSweepMinutes <= 0 {
		c.Workers.OTPSweepMinutes = 15
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.Auth.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return fmt.Errorf("unsupported password hasher: %s", c.Auth.PasswordHasher)
	}
	return nil
}

// IsProduction - режим production (скрывает debug-маршруты и swagger)
func (c *Config) IsProduction() bool {
	return strings.HasPrefix(strings.ToLower(c.Server.Env), "prod")
}

// SessionTTL - время жизни токена сессии
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.JWT.TTL) * time.Hour
}

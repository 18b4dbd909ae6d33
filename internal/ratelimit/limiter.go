package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Limiter решает, пропускать ли очередной запрос с данным ключом (обычно IP)
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// Config - параметры лимитера
type Config struct {
	Backend   string // memory, redis
	RedisURL  string
	PerMinute int
	Burst     int
}

// New создает лимитер по конфигу
func New(cfg Config) (Limiter, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryLimiter(cfg.PerMinute, cfg.Burst), nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedisLimiter(redis.NewClient(opts), cfg.PerMinute+cfg.Burst), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}

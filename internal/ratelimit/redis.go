package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const window = time.Minute

// counter - подмножество *redis.Client, нужное лимитеру
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// RedisLimiter - fixed window счетчик в Redis, общий для всех инстансов
type RedisLimiter struct {
	rdb   counter
	limit int64
	now   func() time.Time
}

func NewRedisLimiter(rdb counter, perWindow int) *RedisLimiter {
	if perWindow <= 0 {
		perWindow = 40
	}
	return &RedisLimiter{rdb: rdb, limit: int64(perWindow), now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().Truncate(window).Unix()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, slot)

	n, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", redisKey, err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}
	return n <= l.limit, nil
}

func (l *RedisLimiter) Close() error {
	return l.rdb.Close()
}

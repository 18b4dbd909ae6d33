package workers

import (
	"context"
	"time"

	"conference_backend/internal/logger"
	"conference_backend/internal/repositories"

	"gorm.io/gorm"
)

// OTPSweeper периодически стирает просроченные коды сброса пароля.
// Просроченный код и так отклоняется при сбросе, воркер лишь чистит строки.
type OTPSweeper struct {
	db       *gorm.DB
	repo     repositories.AccountRepository
	interval time.Duration
	now      func() time.Time
}

const defaultSweepInterval = 15 * time.Minute

func NewOTPSweeper(db *gorm.DB, repo repositories.AccountRepository, interval time.Duration) *OTPSweeper {
	// time.NewTicker паникует на неположительном интервале
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &OTPSweeper{db: db, repo: repo, interval: interval, now: time.Now}
}

// Start запускает воркер в отдельной горутине до отмены ctx
func (w *OTPSweeper) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *OTPSweeper) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.CtxInfo(ctx, "OTP sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep выполняет один проход и возвращает число очищенных аккаунтов
func (w *OTPSweeper) Sweep(ctx context.Context) int64 {
	n, err := w.repo.PurgeExpiredResetOTPs(w.db.WithContext(ctx), w.now())
	if err != nil {
		logger.CtxWithError(ctx, "Error purging expired reset codes", err)
		return 0
	}
	if n > 0 {
		logger.CtxInfo(ctx, "Purged expired reset codes", "count", n)
	}
	return n
}

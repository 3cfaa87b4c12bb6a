package worker

import (
	"context"
	"time"

	"github.com/jborjar/paquetes/pkg/logger"
)

// NewSessionCleanupJob は期限切れセッションを定期的に削除するジョブを作成します
// cleanupFn は削除した件数を返します
func NewSessionCleanupJob(cleanupFn func(ctx context.Context) (int, error), interval time.Duration) Job {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return Job{
		Name:     "session_cleanup",
		Interval: interval,
		Fn: func(ctx context.Context) error {
			count, err := cleanupFn(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info(ctx, "session cleanup completed", "deleted", count)
			} else {
				logger.Debug(ctx, "session cleanup completed", "deleted", 0)
			}
			return nil
		},
	}
}

// NewHealthCheckJob はバックエンドの疎通を定期的に確認するジョブを作成します
func NewHealthCheckJob(checkFn func(ctx context.Context) error, interval time.Duration) Job {
	if interval <= 0 {
		interval = time.Minute
	}

	return Job{
		Name:     "health_check",
		Interval: interval,
		Fn: func(ctx context.Context) error {
			if err := checkFn(ctx); err != nil {
				logger.Warn(ctx, "health check failed", "error", err)
				return err
			}
			return nil
		},
	}
}

// NewAccountsWatchJob はアカウントファイルの監視を常駐ジョブとして作成します
func NewAccountsWatchJob(watchFn func(ctx context.Context) error) Job {
	return Job{
		Name: "accounts_watch",
		Fn:   watchFn,
	}
}

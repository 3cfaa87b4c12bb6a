package di

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jborjar/paquetes/internal/infrastructure/worker"
	"github.com/jborjar/paquetes/internal/interface/handler"
)

// NewWorkerManager はバックグラウンドジョブを登録したManagerを作成します
func NewWorkerManager(c *Container, health *handler.HealthHandler) *worker.Manager {
	mgr := worker.NewManager()

	mgr.Register(worker.NewSessionCleanupJob(c.Auth.CleanupSessions.Execute, c.config.Worker.CleanupInterval))

	if health != nil && len(health.Names()) > 0 {
		mgr.Register(worker.NewHealthCheckJob(func(ctx context.Context) error {
			return joinFailures(health.CheckAll(ctx))
		}, c.config.Worker.HealthCheckInterval))
	}

	if c.UsersFile != nil && c.config.Auth.WatchUsersFile {
		mgr.Register(worker.NewAccountsWatchJob(c.UsersFile.Watch))
	}

	return mgr
}

// joinFailures はバックエンドごとの失敗を1つのエラーにまとめます
func joinFailures(failures map[string]error) error {
	if len(failures) == 0 {
		return nil
	}
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, failures[name]))
	}
	return errors.Join(errs...)
}

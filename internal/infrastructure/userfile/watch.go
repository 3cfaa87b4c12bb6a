package userfile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jborjar/paquetes/pkg/logger"
)

// reloadDelay は連続する書き込みイベントをまとめる待ち時間です
const reloadDelay = 100 * time.Millisecond

// Watch はアカウントファイルの変更を監視し、変更のたびにRefreshします
// エディタの置き換え保存にも追従するため、親ディレクトリを監視します
// ctx がキャンセルされるまでブロックします
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	logger.Info(ctx, "watching accounts file", "path", target)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}

		case <-timer.C:
			if err := s.Refresh(ctx); err != nil {
				logger.Warn(ctx, "accounts file refresh failed", "error", err)
				continue
			}
			logger.Info(ctx, "accounts file reloaded", "accounts", s.Len())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn(ctx, "accounts file watcher error", "error", err)
		}
	}
}

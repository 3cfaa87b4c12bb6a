package command

import (
	"context"

	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth"
)

// CleanupSessionsCommand は期限切れセッションの一括削除コマンドです
type CleanupSessionsCommand struct {
	sessions *service.SessionService
}

// NewCleanupSessionsCommand は新しいCleanupSessionsCommandを作成します
func NewCleanupSessionsCommand(sessions *service.SessionService) *CleanupSessionsCommand {
	return &CleanupSessionsCommand{sessions: sessions}
}

// Execute は期限切れセッションを削除し、削除件数を返します
func (c *CleanupSessionsCommand) Execute(ctx context.Context) (int, error) {
	deleted, err := c.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		return deleted, auth.MapSessionError(err)
	}
	return deleted, nil
}

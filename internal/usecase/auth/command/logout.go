package command

import (
	"context"

	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth"
	"github.com/jborjar/paquetes/pkg/apperror"
)

// LogoutCommand はログアウトコマンドです
type LogoutCommand struct {
	sessions *service.SessionService
}

// NewLogoutCommand は新しいLogoutCommandを作成します
func NewLogoutCommand(sessions *service.SessionService) *LogoutCommand {
	return &LogoutCommand{sessions: sessions}
}

// Execute はセッションを削除します
// 存在しないセッションは 400 session not found になります
func (c *LogoutCommand) Execute(ctx context.Context, sessionID string) error {
	deleted, err := c.sessions.DeleteSession(ctx, sessionID)
	if err != nil {
		return auth.MapSessionError(err)
	}
	if !deleted {
		return apperror.NewInvalidRequestError("session not found")
	}
	return nil
}

// LogoutAllCommand はユーザーの全セッションを削除するコマンドです
type LogoutAllCommand struct {
	sessions *service.SessionService
}

// NewLogoutAllCommand は新しいLogoutAllCommandを作成します
func NewLogoutAllCommand(sessions *service.SessionService) *LogoutAllCommand {
	return &LogoutAllCommand{sessions: sessions}
}

// Execute はユーザーの全セッションを削除し、削除件数を返します
func (c *LogoutAllCommand) Execute(ctx context.Context, username string) (int, error) {
	deleted, err := c.sessions.DeleteUserSessions(ctx, username)
	if err != nil {
		return deleted, auth.MapSessionError(err)
	}
	return deleted, nil
}

package command

import (
	"context"

	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/usecase/auth"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// RevokeSessionCommand は管理者によるセッション失効コマンドです
type RevokeSessionCommand struct {
	sessions *service.SessionService
}

// NewRevokeSessionCommand は新しいRevokeSessionCommandを作成します
func NewRevokeSessionCommand(sessions *service.SessionService) *RevokeSessionCommand {
	return &RevokeSessionCommand{sessions: sessions}
}

// Execute は指定したセッションを削除します
func (c *RevokeSessionCommand) Execute(ctx context.Context, sessionID string) error {
	deleted, err := c.sessions.DeleteSession(ctx, sessionID)
	if err != nil {
		return auth.MapSessionError(err)
	}
	if !deleted {
		return apperror.NewNotFoundError("session")
	}
	logger.Info(ctx, "session revoked", "target_session_id", logger.MaskSessionID(sessionID))
	return nil
}

package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/interface/dto/request"
	"github.com/jborjar/paquetes/internal/interface/dto/response"
	"github.com/jborjar/paquetes/internal/interface/presenter"
	authcmd "github.com/jborjar/paquetes/internal/usecase/auth/command"
	authqry "github.com/jborjar/paquetes/internal/usecase/auth/query"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// SessionHandler は管理者向けのセッション管理ハンドラーです
type SessionHandler struct {
	revokeCommand     *authcmd.RevokeSessionCommand
	logoutAllCommand  *authcmd.LogoutAllCommand
	cleanupCommand    *authcmd.CleanupSessionsCommand
	listSessionsQuery *authqry.ListSessionsQuery
}

// NewSessionHandler は新しいSessionHandlerを作成します
func NewSessionHandler(
	revokeCommand *authcmd.RevokeSessionCommand,
	logoutAllCommand *authcmd.LogoutAllCommand,
	cleanupCommand *authcmd.CleanupSessionsCommand,
	listSessionsQuery *authqry.ListSessionsQuery,
) *SessionHandler {
	return &SessionHandler{
		revokeCommand:     revokeCommand,
		logoutAllCommand:  logoutAllCommand,
		cleanupCommand:    cleanupCommand,
		listSessionsQuery: listSessionsQuery,
	}
}

// List は有効なセッション一覧を取得します
// username を省略すると全ユーザーが対象です
// GET /api/v1/admin/sessions?username=
func (h *SessionHandler) List(c echo.Context) error {
	var req request.ListSessionsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidationError("invalid query parameters", nil)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.listSessionsQuery.Execute(c.Request().Context(), authqry.ListSessionsInput{
		Username: req.Username,
	})
	if err != nil {
		return err
	}

	return presenter.List(c, response.ToSessionListResponse(output.Sessions, output.TTL), len(output.Sessions))
}

// Revoke はセッションを失効させます
// DELETE /api/v1/admin/sessions/:id
func (h *SessionHandler) Revoke(c echo.Context) error {
	var req request.SessionIDParam
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidationError("invalid session id", nil)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.revokeCommand.Execute(c.Request().Context(), req.ID); err != nil {
		return err
	}

	logger.Info(c.Request().Context(), "session revoked", "target", logger.MaskSessionID(req.ID))
	return presenter.Message(c, "session revoked")
}

// RevokeUser はユーザーの全セッションを失効させます
// DELETE /api/v1/admin/users/:username/sessions
func (h *SessionHandler) RevokeUser(c echo.Context) error {
	var req request.UsernameParam
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidationError("invalid username", nil)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	deleted, err := h.logoutAllCommand.Execute(c.Request().Context(), req.Username)
	if err != nil {
		return err
	}

	logger.Info(c.Request().Context(), "user sessions revoked", "target_user", req.Username, "count", deleted)
	return presenter.OK(c, response.LogoutAllResponse{Deleted: deleted})
}

// Cleanup は期限切れのセッションを削除します
// POST /api/v1/admin/sessions/cleanup
func (h *SessionHandler) Cleanup(c echo.Context) error {
	removed, err := h.cleanupCommand.Execute(c.Request().Context())
	if err != nil {
		return err
	}

	return presenter.OK(c, response.CleanupResponse{Removed: removed})
}

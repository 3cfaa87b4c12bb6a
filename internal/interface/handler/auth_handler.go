package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/domain/authz"
	"github.com/jborjar/paquetes/internal/interface/dto/request"
	"github.com/jborjar/paquetes/internal/interface/dto/response"
	"github.com/jborjar/paquetes/internal/interface/middleware"
	"github.com/jborjar/paquetes/internal/interface/presenter"
	authcmd "github.com/jborjar/paquetes/internal/usecase/auth/command"
	authqry "github.com/jborjar/paquetes/internal/usecase/auth/query"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// AuthHandler は認証関連のHTTPハンドラーです
type AuthHandler struct {
	// Commands
	loginCommand     *authcmd.LoginCommand
	logoutCommand    *authcmd.LogoutCommand
	logoutAllCommand *authcmd.LogoutAllCommand

	// Queries
	getSessionQuery   *authqry.GetSessionQuery
	listSessionsQuery *authqry.ListSessionsQuery

	cookies CookieConfig
}

// NewAuthHandler は新しいAuthHandlerを作成します
func NewAuthHandler(
	loginCommand *authcmd.LoginCommand,
	logoutCommand *authcmd.LogoutCommand,
	logoutAllCommand *authcmd.LogoutAllCommand,
	getSessionQuery *authqry.GetSessionQuery,
	listSessionsQuery *authqry.ListSessionsQuery,
	cookies CookieConfig,
) *AuthHandler {
	if cookies.Name == "" {
		cookies.Name = middleware.DefaultSessionCookieName
	}
	return &AuthHandler{
		loginCommand:      loginCommand,
		logoutCommand:     logoutCommand,
		logoutAllCommand:  logoutAllCommand,
		getSessionQuery:   getSessionQuery,
		listSessionsQuery: listSessionsQuery,
		cookies:           cookies,
	}
}

// Login はログインを処理します
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req request.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidationError("invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.loginCommand.Execute(c.Request().Context(), authcmd.LoginInput{
		Username: req.Username,
		Password: req.Password,
		Scopes:   authz.ParseScopes(req.Scopes),
	})
	if err != nil {
		return err
	}

	h.cookies.setSessionCookies(c, output.Session.ID, output.TTL)

	return presenter.OK(c, response.LoginResponse{
		SessionResponse: *response.ToSessionResponse(output.Session, output.TTL),
		ExpiresIn:       int(output.TTL.Seconds()),
	})
}

// Logout はログアウトを処理します
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	token, err := h.token(c)
	if err != nil {
		return err
	}

	// 結果に関わらずCookieは削除する
	h.cookies.clearSessionCookies(c)

	if err := h.logoutCommand.Execute(c.Request().Context(), token); err != nil {
		return err
	}

	logger.Info(c.Request().Context(), "session logged out", "session_id", logger.MaskSessionID(token))
	return presenter.Message(c, "logged out successfully")
}

// Session は現在のセッション情報を取得します
// セッションの有効期限は延長しません
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c echo.Context) error {
	token, err := h.token(c)
	if err != nil {
		return err
	}

	output, err := h.getSessionQuery.Execute(c.Request().Context(), authqry.GetSessionInput{
		SessionID: token,
		Renew:     false,
	})
	if err != nil {
		return err
	}

	return presenter.OK(c, &response.SessionResponse{
		SessionID:    output.Session.ID,
		Username:     output.Session.Username,
		Scopes:       output.Session.Scopes,
		CreatedAt:    output.Session.CreatedAt.UTC(),
		LastActivity: output.Session.LastActivity.UTC(),
		ExpiresAt:    output.ExpiresAt.UTC(),
	})
}

// LogoutAll は呼び出しユーザーの全セッションを削除します
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	username := middleware.GetUsername(c)

	deleted, err := h.logoutAllCommand.Execute(c.Request().Context(), username)
	if err != nil {
		return err
	}

	h.cookies.clearSessionCookies(c)

	return presenter.OK(c, response.LogoutAllResponse{Deleted: deleted})
}

// Sessions は呼び出しユーザーの有効なセッション一覧を取得します
// GET /api/v1/auth/sessions
func (h *AuthHandler) Sessions(c echo.Context) error {
	output, err := h.listSessionsQuery.Execute(c.Request().Context(), authqry.ListSessionsInput{
		Username: middleware.GetUsername(c),
	})
	if err != nil {
		return err
	}

	return presenter.List(c, response.ToSessionListResponse(output.Sessions, output.TTL), len(output.Sessions))
}

// token はリクエストからセッショントークンを取り出します
func (h *AuthHandler) token(c echo.Context) (string, error) {
	token, err := middleware.ExtractToken(c, h.cookies.Name)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", apperror.NewUnauthorizedError("not authenticated")
	}
	return token, nil
}

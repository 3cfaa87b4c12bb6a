package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/usecase/auth"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// DefaultSessionCookieName はセッショントークンを運ぶCookieの既定名です
const DefaultSessionCookieName = "Sesion_Auth"

const bearerScheme = "bearer"

// SessionValidator はセッションIDを検証します
// 存在しない・期限切れのセッションは (nil, nil) を返します
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string, renew bool) (*entity.Session, error)
}

// SessionAuthMiddleware はセッションベース認証ミドルウェアを提供します
type SessionAuthMiddleware struct {
	sessions   SessionValidator
	cookieName string
}

// NewSessionAuthMiddleware は新しいSessionAuthMiddlewareを作成します
func NewSessionAuthMiddleware(sessions SessionValidator, cookieName string) *SessionAuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultSessionCookieName
	}
	return &SessionAuthMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
	}
}

// CookieName はセッションCookie名を返します
func (m *SessionAuthMiddleware) CookieName() string {
	return m.cookieName
}

// ExtractToken はリクエストからセッショントークンを取り出します
// Authorizationヘッダーがあればそれを優先し、無ければCookieを参照します
// どちらも無い場合は空文字列を返します
func ExtractToken(c echo.Context, cookieName string) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, bearerScheme) || token == "" {
			return "", apperror.NewUnauthorizedError("invalid Authorization format")
		}
		return token, nil
	}

	cookie, err := c.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return "", nil
	}
	return cookie.Value, nil
}

// Authenticate は認証ミドルウェアを返します
func (m *SessionAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := ExtractToken(c, m.cookieName)
			if err != nil {
				return err
			}
			if token == "" {
				return apperror.NewUnauthorizedError("not authenticated")
			}

			session, err := m.sessions.ValidateSession(c.Request().Context(), token, true)
			if err != nil {
				return auth.MapSessionError(err)
			}
			if session == nil {
				return apperror.NewUnauthorizedError("invalid or expired session")
			}

			attach(c, session)
			return next(c)
		}
	}
}

// OptionalAuth はオプショナル認証ミドルウェアを返します
// 有効なセッションがあれば設定し、なくてもエラーにしない
func (m *SessionAuthMiddleware) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := ExtractToken(c, m.cookieName)
			if err != nil || token == "" {
				return next(c)
			}

			session, err := m.sessions.ValidateSession(c.Request().Context(), token, true)
			if err != nil {
				logger.Warn(c.Request().Context(), "optional session lookup failed", "error", err)
				return next(c)
			}
			if session != nil {
				attach(c, session)
			}
			return next(c)
		}
	}
}

// attach はセッションをechoコンテキストとリクエストコンテキストの両方に設定します
func attach(c echo.Context, session *entity.Session) {
	SetSession(c, session)

	ctx := c.Request().Context()
	ctx = logger.ContextWithUsername(ctx, session.Username)
	ctx = logger.ContextWithSessionID(ctx, session.ID)
	c.SetRequest(c.Request().WithContext(ctx))
}

package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/domain/entity"
)

const (
	ContextKeyUsername  = "username"
	ContextKeySessionID = "session_id"
	ContextKeySession   = "session"
)

// GetSession はコンテキストから認証済みセッションを取得します
func GetSession(c echo.Context) *entity.Session {
	if session, ok := c.Get(ContextKeySession).(*entity.Session); ok {
		return session
	}
	return nil
}

// GetUsername はコンテキストからユーザー名を取得します
func GetUsername(c echo.Context) string {
	if username, ok := c.Get(ContextKeyUsername).(string); ok {
		return username
	}
	return ""
}

// GetSessionID はコンテキストからセッションIDを取得します
func GetSessionID(c echo.Context) string {
	if id, ok := c.Get(ContextKeySessionID).(string); ok {
		return id
	}
	return ""
}

// SetSession はコンテキストにセッションを設定します
func SetSession(c echo.Context, session *entity.Session) {
	c.Set(ContextKeySession, session)
	c.Set(ContextKeyUsername, session.Username)
	c.Set(ContextKeySessionID, session.ID)
}

package di

import (
	"context"

	"github.com/jborjar/paquetes/internal/interface/handler"
)

// Handlers はアプリケーションのハンドラーを保持します
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
}

// NewHandlers はContainerから全てのハンドラーを初期化します
func NewHandlers(c *Container) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(c),
		Auth: handler.NewAuthHandler(
			c.Auth.Login,
			c.Auth.Logout,
			c.Auth.LogoutAll,
			c.Auth.GetSession,
			c.Auth.ListSessions,
			handler.CookieConfig{
				Name:   c.config.Session.CookieName,
				Secure: c.config.Session.CookieSecure,
			},
		),
		Session: handler.NewSessionHandler(
			c.Auth.RevokeSession,
			c.Auth.LogoutAll,
			c.Auth.CleanupSessions,
			c.Auth.ListSessions,
		),
	}
}

// NewHealthHandler は使用中のバックエンドを登録したHealthHandlerを作成します
// ワーカーの定期ヘルスチェックも同じチェッカーを使います
func NewHealthHandler(c *Container) *handler.HealthHandler {
	health := handler.NewHealthHandler()
	if c.PgClient != nil {
		health.RegisterChecker("postgres", c.PgClient)
	}
	if c.RedisClient != nil {
		health.RegisterChecker("redis", c.RedisClient)
	}
	if c.SQLiteDB != nil {
		health.RegisterChecker("sqlite", handler.HealthCheckerFunc(func(ctx context.Context) error {
			return c.SQLiteDB.PingContext(ctx)
		}))
	}
	return health
}

package di

import (
	"github.com/jborjar/paquetes/internal/infrastructure/ratelimit"
	"github.com/jborjar/paquetes/internal/interface/middleware"
)

// Middlewares はアプリケーションのミドルウェアを保持します
type Middlewares struct {
	SessionAuth *middleware.SessionAuthMiddleware
	RateLimit   *middleware.RateLimitMiddleware
	LoginRule   ratelimit.Rule
}

// NewMiddlewares はContainerから全てのミドルウェアを初期化します
func NewMiddlewares(c *Container) *Middlewares {
	return &Middlewares{
		SessionAuth: middleware.NewSessionAuthMiddleware(c.SessionService, c.config.Session.CookieName),
		RateLimit:   middleware.NewRateLimitMiddleware(c.RateLimiter),
		LoginRule:   ratelimit.LoginRule(c.config.Auth.LoginRateLimit, c.config.Auth.LoginRateWindow),
	}
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/domain/authz"
	"github.com/jborjar/paquetes/internal/infrastructure/di"
	"github.com/jborjar/paquetes/internal/interface/middleware"
	"github.com/jborjar/paquetes/internal/interface/presenter"
)

// APIPrefix はAPIルートの共通プレフィックスです
const APIPrefix = "/api/v1"

// LoginPath はログインエンドポイントのパスです
const LoginPath = APIPrefix + "/auth/login"

// Router はルート定義を管理します
type Router struct {
	echo        *echo.Echo
	handlers    *di.Handlers
	middlewares *di.Middlewares
}

// NewRouter は新しいRouterを作成します
func NewRouter(e *echo.Echo, handlers *di.Handlers, middlewares *di.Middlewares) *Router {
	return &Router{
		echo:        e,
		handlers:    handlers,
		middlewares: middlewares,
	}
}

// Setup は全てのルートを設定します
func (r *Router) Setup() {
	r.setupHealthRoutes()
	r.setupAPIRoutes()
}

// setupHealthRoutes はヘルスチェックルートを設定します
func (r *Router) setupHealthRoutes() {
	if r.handlers.Health == nil {
		return
	}
	r.echo.GET("/health", r.handlers.Health.Check)
	r.echo.GET("/ready", r.handlers.Health.Ready)
}

// setupAPIRoutes はAPIルートを設定します
func (r *Router) setupAPIRoutes() {
	api := r.echo.Group(APIPrefix)

	api.GET("/", func(c echo.Context) error {
		return presenter.OK(c, map[string]string{
			"message": "paquetes auth API v1",
		})
	})

	r.setupAuthRoutes(api)
	r.setupAdminRoutes(api)
}

// setupAuthRoutes は認証関連ルートを設定します
func (r *Router) setupAuthRoutes(api *echo.Group) {
	authGroup := api.Group("/auth")

	// トークンをヘッダーまたはCookieから直接受け取るルート
	authGroup.POST("/login", r.handlers.Auth.Login,
		r.middlewares.RateLimit.ByIP(r.middlewares.LoginRule))
	authGroup.POST("/logout", r.handlers.Auth.Logout)
	authGroup.GET("/session", r.handlers.Auth.Session)

	// Protected auth routes
	protected := authGroup.Group("", r.middlewares.SessionAuth.Authenticate())
	protected.POST("/logout-all", r.handlers.Auth.LogoutAll)
	protected.GET("/sessions", r.handlers.Auth.Sessions)
}

// setupAdminRoutes は管理者向けルートを設定します
func (r *Router) setupAdminRoutes(api *echo.Group) {
	admin := api.Group("/admin",
		r.middlewares.SessionAuth.Authenticate(),
		middleware.RequireScopes(authz.ScopeSessionsAdmin),
	)

	admin.GET("/sessions", r.handlers.Session.List)
	admin.POST("/sessions/cleanup", r.handlers.Session.Cleanup)
	admin.DELETE("/sessions/:id", r.handlers.Session.Revoke)
	admin.DELETE("/users/:username/sessions", r.handlers.Session.RevokeUser)
}

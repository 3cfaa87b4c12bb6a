package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/domain/authz"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// RequireScopes はセッションが全ての必須スコープを満たすか確認します
// Authenticate の後に使用します
func RequireScopes(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := GetSession(c)
			if session == nil {
				return apperror.NewUnauthorizedError("not authenticated")
			}

			missing := authz.NewScopeSet(session.Scopes...).Missing(required...)
			if len(missing) > 0 {
				logger.Info(c.Request().Context(), "insufficient scopes", "missing", missing)
				return apperror.NewForbiddenError("missing required scopes: " + strings.Join(missing, ", "))
			}

			return next(c)
		}
	}
}

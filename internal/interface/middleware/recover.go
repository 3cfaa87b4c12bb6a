package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// Recover はパニックを500エラーに変換するミドルウェアを返します
// エラーは呼び出し元に返し、レスポンスはエラーハンドラーが書き込みます
func Recover() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:           4 << 10,
		DisableStackAll:     true,
		DisableErrorHandler: true,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error(c.Request().Context(), "panic recovered",
				"error", err,
				"stack", string(stack),
			)
			return apperror.NewInternalError(err)
		},
	})
}

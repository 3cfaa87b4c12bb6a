package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/pkg/logger"
)

// Logger はリクエストロギングミドルウェアを返します
// 認証済みリクエストではユーザー名とマスクしたセッションIDもコンテキストから出力されます
// ヘルスチェックは記録しません
func Logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// ステータスを確定させるため先にエラーハンドラーを通す
				c.Error(err)
			}

			route := c.Path()
			if route == "/health" || route == "/ready" {
				return nil
			}

			status := c.Response().Status
			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			logger.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"route", route,
				"uri", c.Request().RequestURI,
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
				"ip", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
			)

			return nil
		}
	}
}

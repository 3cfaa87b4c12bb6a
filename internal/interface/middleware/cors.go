package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// CORSConfig はCORS設定を定義します
type CORSConfig struct {
	AllowOrigins []string
	// MaxAge はプリフライト結果のキャッシュ秒数です
	MaxAge int
}

// DefaultCORSConfig はデフォルトCORS設定を返します
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		MaxAge:       86400,
	}
}

// CORSWithConfig は設定付きCORSミドルウェアを返します
// セッションCookieを送れるのはオリジンを列挙した場合だけで、"*" では資格情報を許可しません
func CORSWithConfig(cfg CORSConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			HeaderRequestID,
			CSRFHeaderName,
		},
		ExposeHeaders: []string{
			HeaderRequestID,
			HeaderRateLimitLimit,
			HeaderRateLimitRemaining,
			HeaderRateLimitReset,
			echo.HeaderRetryAfter,
		},
		AllowCredentials: !slices.Contains(cfg.AllowOrigins, "*"),
		MaxAge:           cfg.MaxAge,
	})
}

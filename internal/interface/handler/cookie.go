package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/interface/middleware"
	"github.com/jborjar/paquetes/pkg/logger"
)

// CookieConfig はセッションCookieの設定を定義します
type CookieConfig struct {
	Name   string
	Secure bool
}

// setSessionCookies はセッションCookieとCSRF Cookieを設定します
func (cfg CookieConfig) setSessionCookies(c echo.Context, sessionID string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())

	c.SetCookie(&http.Cookie{
		Name:     cfg.Name,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})

	token, err := middleware.GenerateCSRFToken()
	if err != nil {
		// CSRF Cookieが無い場合、Cookie認証の状態変更リクエストは403になる
		logger.Error(c.Request().Context(), "failed to generate csrf token", "error", err)
		return
	}
	middleware.SetCSRFCookie(c, token, cfg.Secure, maxAge)
}

// clearSessionCookies はセッションCookieとCSRF Cookieを削除します
func (cfg CookieConfig) clearSessionCookies(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	middleware.ClearCSRFCookie(c, cfg.Secure)
}

package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jborjar/paquetes/pkg/apperror"
)

const (
	// CSRFCookieName はCSRFトークンのCookie名です
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName はCSRFトークンのヘッダー名です
	CSRFHeaderName = "X-CSRF-Token"
	// csrfTokenBytes はCSRFトークンのバイト数です（32バイト = 256ビット）
	csrfTokenBytes = 32
)

// GenerateCSRFToken は暗号学的に安全なCSRFトークンを生成します
func GenerateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SetCSRFCookie はCSRFトークンCookieを設定します（JavaScriptから読み取り可能）
func SetCSRFCookie(c echo.Context, token string, secure bool, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // double-submit cookie pattern
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearCSRFCookie はCSRFトークンCookieを削除します
func ClearCSRFCookie(c echo.Context, secure bool) {
	SetCSRFCookie(c, "", secure, -1)
}

// CSRFConfig はCSRF保護の設定を定義します
type CSRFConfig struct {
	// SessionCookieName はセッションCookie名です。このCookieを持つリクエストだけを検証します
	SessionCookieName string
	Skipper           middleware.Skipper
}

// CSRF はCSRF保護ミドルウェアを返します（double-submit cookie pattern）
// セッションCookieで認証される状態変更リクエストに対してトークンを検証します
// Authorizationヘッダーで認証するリクエストは対象外です
func CSRF(cfg CSRFConfig) echo.MiddlewareFunc {
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = DefaultSessionCookieName
	}
	if cfg.Skipper == nil {
		cfg.Skipper = middleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			method := strings.ToUpper(c.Request().Method)
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return next(c)
			}

			if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}
			if _, err := c.Cookie(cfg.SessionCookieName); err != nil {
				return next(c)
			}

			csrfCookie, err := c.Cookie(CSRFCookieName)
			if err != nil || csrfCookie.Value == "" {
				return apperror.NewForbiddenError("CSRF token missing")
			}

			headerToken := c.Request().Header.Get(CSRFHeaderName)
			if headerToken == "" {
				return apperror.NewForbiddenError("CSRF token header missing")
			}

			if subtle.ConstantTimeCompare([]byte(csrfCookie.Value), []byte(headerToken)) != 1 {
				return apperror.NewForbiddenError("CSRF token mismatch")
			}

			return next(c)
		}
	}
}

package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/internal/infrastructure/ratelimit"
	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// レート制限のレスポンスヘッダー
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitMiddleware はレート制限ミドルウェアを提供します
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
}

// NewRateLimitMiddleware は新しいRateLimitMiddlewareを作成します
func NewRateLimitMiddleware(limiter ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// ByIP はIPアドレスでレート制限するミドルウェアを返します
func (m *RateLimitMiddleware) ByIP(rule ratelimit.Rule) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rule.Requests <= 0 {
				return next(c)
			}

			result, err := m.limiter.Allow(c.Request().Context(), c.RealIP(), rule)
			if err != nil {
				// レート制限チェックに失敗した場合はリクエストを許可
				logger.Warn(c.Request().Context(), "rate limit check failed", "type", rule.Type, "error", err)
				return next(c)
			}

			setRateLimitHeaders(c, rule, result)

			if !result.Allowed {
				if !result.RetryAt.IsZero() {
					retry := int(time.Until(result.RetryAt).Seconds()) + 1
					c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retry))
				}
				logger.Warn(c.Request().Context(), "rate limit exceeded", "type", rule.Type, "ip", c.RealIP())
				return apperror.NewTooManyRequestsError("rate limit exceeded")
			}

			return next(c)
		}
	}
}

// setRateLimitHeaders はレート制限ヘッダーを設定します
// Reset はウィンドウがリセットされるUNIX時刻（秒）です
func setRateLimitHeaders(c echo.Context, rule ratelimit.Rule, result *ratelimit.Result) {
	h := c.Response().Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(rule.Requests))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
	h.Set(HeaderRateLimitReset, strconv.FormatInt(result.ResetAt.Unix(), 10))
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jborjar/paquetes/internal/infrastructure/ratelimit"
)

// RateLimiter はRedisを使った複数インスタンス共有のレート制限を提供します
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRateLimiter は新しいRateLimiterを作成します
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Sliding Window Log アルゴリズムを使用したレート制限
// Luaスクリプトでアトミックに処理
var slidingWindowScript = redis.NewScript(`
    local key = KEYS[1]
    local now = tonumber(ARGV[1])
    local window = tonumber(ARGV[2])
    local limit = tonumber(ARGV[3])

    -- 古いエントリを削除
    redis.call('ZREMRANGEBYSCORE', key, 0, now - window)

    local count = redis.call('ZCARD', key)

    if count < limit then
        redis.call('ZADD', key, now, now .. ':' .. math.random())
        redis.call('PEXPIRE', key, window)
        return {1, limit - count - 1, now + window}
    else
        -- 最も古いエントリがウィンドウから外れる時刻
        local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
        return {0, 0, tonumber(oldest[2]) + window}
    end
`)

// Allow はリクエストが許可されるかチェックします
func (r *RateLimiter) Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (*ratelimit.Result, error) {
	key := RateLimitKey(rule.Type, identifier)
	now := r.now().UnixMilli()

	result, err := slidingWindowScript.Run(ctx, r.client, []string{key}, now, rule.Window.Milliseconds(), rule.Requests).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}

	res := &ratelimit.Result{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   time.UnixMilli(result[2]),
	}
	if !res.Allowed {
		res.RetryAt = res.ResetAt
	}
	return res, nil
}

// Reset は識別子のレート制限をリセットします
func (r *RateLimiter) Reset(ctx context.Context, identifier string, rule ratelimit.Rule) error {
	if err := r.client.Del(ctx, RateLimitKey(rule.Type, identifier)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

var _ ratelimit.Limiter = (*RateLimiter)(nil)

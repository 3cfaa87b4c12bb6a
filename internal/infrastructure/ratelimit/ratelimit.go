// Package ratelimit はレート制限の共通型とプロセス内リミッターを提供します
package ratelimit

import (
	"context"
	"time"
)

// Rule はレート制限の設定を定義します
type Rule struct {
	Type     string        // 制限タイプ（auth:login等）
	Requests int           // ウィンドウ内の最大リクエスト数
	Window   time.Duration // ウィンドウサイズ
}

// Result はレート制限チェックの結果を表します
type Result struct {
	Allowed   bool      // リクエストが許可されたか
	Remaining int       // 残りリクエスト数
	ResetAt   time.Time // リセット時刻
	RetryAt   time.Time // リトライ可能時刻（拒否された場合）
}

// Limiter はレート制限の判定を行います
type Limiter interface {
	Allow(ctx context.Context, identifier string, rule Rule) (*Result, error)
}

// LoginRule はログイン試行のレート制限を返します
func LoginRule(requests int, window time.Duration) Rule {
	return Rule{
		Type:     "auth:login",
		Requests: requests,
		Window:   window,
	}
}

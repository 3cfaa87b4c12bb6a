package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepThreshold を超えたらアイドルなエントリを掃除します
const sweepThreshold = 4096

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter はプロセス内のトークンバケットでレート制限します
// 複数インスタンス間では共有されません
type LocalLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	now     func() time.Time
}

// NewLocalLimiter は新しいLocalLimiterを作成します
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		entries: make(map[string]*localEntry),
		now:     time.Now,
	}
}

// Allow はリクエストが許可されるかチェックします
func (l *LocalLimiter) Allow(ctx context.Context, identifier string, rule Rule) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := l.now()
	interval := rule.Window / time.Duration(rule.Requests)

	l.mu.Lock()
	defer l.mu.Unlock()

	key := rule.Type + ":" + identifier
	entry, ok := l.entries[key]
	if !ok {
		if len(l.entries) >= sweepThreshold {
			l.sweep(now, rule.Window)
		}
		entry = &localEntry{limiter: rate.NewLimiter(rate.Every(interval), rule.Requests)}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	if entry.limiter.AllowN(now, 1) {
		return &Result{
			Allowed:   true,
			Remaining: int(entry.limiter.TokensAt(now)),
			ResetAt:   now.Add(rule.Window),
		}, nil
	}

	missing := 1 - entry.limiter.TokensAt(now)
	retryAt := now.Add(time.Duration(missing * float64(interval)))
	return &Result{
		Allowed:   false,
		Remaining: 0,
		ResetAt:   now.Add(rule.Window),
		RetryAt:   retryAt,
	}, nil
}

// sweep はウィンドウ以上アクセスのないエントリを削除します
func (l *LocalLimiter) sweep(now time.Time, window time.Duration) {
	for key, entry := range l.entries {
		if now.Sub(entry.lastSeen) > window {
			delete(l.entries, key)
		}
	}
}

var _ Limiter = (*LocalLimiter)(nil)

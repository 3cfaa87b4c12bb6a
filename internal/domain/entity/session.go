package entity

import (
	"sort"
	"time"
)

// Session はセッションエンティティを定義します
// 有効期限は保存せず、LastActivity と TTL から都度算出します（スライディングウィンドウ）
type Session struct {
	ID           string
	Username     string
	CreatedAt    time.Time
	LastActivity time.Time
	Scopes       []string
}

// NewSession は新しいセッションを作成します
// CreatedAt と LastActivity は同じ時刻で初期化されます
func NewSession(id, username string, scopes []string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Username:     username,
		CreatedAt:    now,
		LastActivity: now,
		Scopes:       NormalizeScopes(scopes),
	}
}

// ExpiresAt は有効期限を返します
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.LastActivity.Add(ttl)
}

// IsExpired はセッションが期限切れかを判定します
// 期限ちょうどの時刻はまだ有効として扱います
func (s *Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.After(s.ExpiresAt(ttl))
}

// Renew は最終アクティビティを更新し、有効期限をスライドさせます
func (s *Session) Renew(now time.Time) {
	s.LastActivity = now
}

// HasScope はスコープを完全一致で保持しているかを判定します
func (s *Session) HasScope(scope string) bool {
	i := sort.SearchStrings(s.Scopes, scope)
	return i < len(s.Scopes) && s.Scopes[i] == scope
}

// Clone はセッションの複製を返します
func (s *Session) Clone() *Session {
	c := *s
	c.Scopes = append([]string(nil), s.Scopes...)
	return &c
}

// NormalizeScopes はスコープを重複排除してソートします
// 空文字列は取り除きます。スコープが無い場合は空スライスを返します
func NormalizeScopes(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	result := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		result = append(result, scope)
	}
	sort.Strings(result)
	return result
}

// SortByLastActivity はLastActivityの昇順に並べ替えます
// 同時刻の場合はCreatedAt、さらにIDの昇順で決定的に並べます
func SortByLastActivity(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.Before(b.LastActivity)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortByCreatedAt はCreatedAtの昇順に並べ替えます
// 同時刻の場合はIDの昇順で並べます
func SortByCreatedAt(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

package cache

import "strings"

const keySeparator = ":"

// キーの名前空間
const (
	nsSession      = "session"       // session:{session_id} (hash)
	nsUserSessions = "user:sessions" // user:sessions:{username} (set of ids)
	nsAllSessions  = "sessions:all"  // 全セッションIDのset
	nsRateLimit    = "ratelimit"     // ratelimit:{type}:{identifier}
)

func joinKey(parts ...string) string {
	return strings.Join(parts, keySeparator)
}

// SessionKey はセッションを保持するハッシュのキーです
func SessionKey(sessionID string) string {
	return joinKey(nsSession, sessionID)
}

// UserSessionsKey はユーザーが所有するセッションIDの集合のキーです
func UserSessionsKey(username string) string {
	return joinKey(nsUserSessions, username)
}

// AllSessionsKey は全セッションIDの集合のキーです。FindAllとクリーンアップが走査します
func AllSessionsKey() string {
	return nsAllSessions
}

// RateLimitKey は固定ウィンドウのカウンターのキーです
func RateLimitKey(limitType, identifier string) string {
	return joinKey(nsRateLimit, limitType, identifier)
}

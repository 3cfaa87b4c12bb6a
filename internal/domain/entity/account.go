package entity

// Account はログイン可能なアカウントを定義します
// MaxSessions が nil の場合は設定のデフォルト値が適用されます
type Account struct {
	Username     string
	PasswordHash string
	Scopes       []string
	MaxSessions  *int
	Disabled     bool
}

// CanLogin はアカウントがログイン可能かを判定します
func (a *Account) CanLogin() bool {
	return !a.Disabled && a.PasswordHash != ""
}

// SessionLimit はアカウント固有の最大セッション数を返します
// 未設定または不正値の場合は fallback を返します
func (a *Account) SessionLimit(fallback int) int {
	if a.MaxSessions == nil || *a.MaxSessions < 1 {
		return fallback
	}
	return *a.MaxSessions
}

package authz

import "strings"

const (
	// scopeSeparator はサブシステムと権限の区切り文字です
	scopeSeparator = ":"
	// listSeparator はスコープ文字列の区切り文字です
	listSeparator = ","
	// PermAdmin は同一サブシステム内の全権限を包含する権限です
	PermAdmin = "admin"

	// ScopeSessionsAdmin は他ユーザーのセッションを管理できるスコープです
	ScopeSessionsAdmin = "sessions:admin"
)

// Scope は "subsystem:permission" 形式または単純な文字列のスコープを表す型
type Scope string

// Split はスコープをサブシステムと権限に分割します
// 区切り文字を含まない単純なスコープの場合 ok は false です
func (s Scope) Split() (subsystem, permission string, ok bool) {
	return strings.Cut(string(s), scopeSeparator)
}

// IsQualified はサブシステム付きスコープかを判定します
func (s Scope) IsQualified() bool {
	_, _, ok := s.Split()
	return ok
}

// Grants は保持スコープ held が要求スコープ s を満たすかを判定します
//
// 単純なスコープは完全一致のみ。"subsystem:perm" 形式では、要求側のサブシステムに
// ワイルドカード(*)を使用でき、保持側の権限が admin なら任意の権限を満たします。
func (s Scope) Grants(held Scope) bool {
	if s == held {
		return true
	}

	reqSub, reqPerm, ok := s.Split()
	if !ok {
		return false
	}
	heldSub, heldPerm, ok := held.Split()
	if !ok {
		return false
	}

	if !matchSubsystem(reqSub, heldSub) {
		return false
	}
	return heldPerm == reqPerm || heldPerm == PermAdmin
}

// matchSubsystem はサブシステムパターンを全体一致で照合します
// 特別な意味を持つのは * だけで、/ を含む任意の文字列(空文字列も可)に一致します
func matchSubsystem(pattern, subsystem string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == subsystem
	}

	first, last := parts[0], parts[len(parts)-1]
	if len(subsystem) < len(first)+len(last) ||
		!strings.HasPrefix(subsystem, first) || !strings.HasSuffix(subsystem, last) {
		return false
	}

	rest := subsystem[len(first) : len(subsystem)-len(last)]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
	}
	return true
}

// ParseScopes はカンマ区切りのスコープ文字列をスライスに変換します
// 前後の空白を除去し、空要素は取り除きます
func ParseScopes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	parts := strings.Split(s, listSeparator)
	scopes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			scopes = append(scopes, trimmed)
		}
	}
	return scopes
}

// JoinScopes はスコープをカンマ区切りの文字列に変換します
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, listSeparator)
}

package authz

import "sort"

// ScopeSet はスコープのセットを表す型
type ScopeSet struct {
	scopes map[Scope]struct{}
}

// NewScopeSet は新しいScopeSetを生成します
func NewScopeSet(scopes ...string) *ScopeSet {
	ss := &ScopeSet{
		scopes: make(map[Scope]struct{}, len(scopes)),
	}
	for _, s := range scopes {
		ss.Add(Scope(s))
	}
	return ss
}

// Add はスコープを追加します
func (ss *ScopeSet) Add(scope Scope) {
	if scope == "" {
		return
	}
	ss.scopes[scope] = struct{}{}
}

// Has はスコープを完全一致で保持しているかを判定します
func (ss *ScopeSet) Has(scope Scope) bool {
	_, ok := ss.scopes[scope]
	return ok
}

// Grants は要求スコープが保持スコープのいずれかで満たされるかを判定します
func (ss *ScopeSet) Grants(required Scope) bool {
	if ss.Has(required) {
		return true
	}
	if !required.IsQualified() {
		return false
	}
	for held := range ss.scopes {
		if required.Grants(held) {
			return true
		}
	}
	return false
}

// Satisfies は要求スコープを全て満たすかを判定します
// 要求が空の場合は常に true です
func (ss *ScopeSet) Satisfies(required ...string) bool {
	return len(ss.Missing(required...)) == 0
}

// Missing は満たされていない要求スコープを返します
func (ss *ScopeSet) Missing(required ...string) []string {
	var missing []string
	for _, r := range required {
		if !ss.Grants(Scope(r)) {
			missing = append(missing, r)
		}
	}
	return missing
}

// List はスコープの一覧をソートして返します
func (ss *ScopeSet) List() []string {
	list := make([]string, 0, len(ss.scopes))
	for s := range ss.scopes {
		list = append(list, string(s))
	}
	sort.Strings(list)
	return list
}

// Size はスコープの数を返します
func (ss *ScopeSet) Size() int {
	return len(ss.scopes)
}

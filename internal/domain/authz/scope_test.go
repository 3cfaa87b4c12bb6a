package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope_Grants(t *testing.T) {
	tests := []struct {
		name     string
		required Scope
		held     Scope
		want     bool
	}{
		{"plain exact", "reports", "reports", true},
		{"plain mismatch", "reports", "report", false},
		{"plain does not match qualified", "sales", "sales:read", false},
		{"qualified exact", "sales:read", "sales:read", true},
		{"qualified other permission", "sales:write", "sales:read", false},
		{"admin implies any permission", "sales:delete", "sales:admin", true},
		{"admin is scoped to subsystem", "hr:read", "sales:admin", false},
		{"wildcard subsystem", "*:read", "sales:read", true},
		{"prefix wildcard", "sal*:read", "sales:read", true},
		{"prefix wildcard mismatch", "hr*:read", "sales:read", false},
		{"wildcard with admin", "*:write", "inventory:admin", true},
		{"held wildcard is literal", "sales:read", "*:read", false},
		{"wildcard spans slash", "erp*:read", "erp/sales:read", true},
		{"inner wildcard", "a*c*e:read", "abcde:read", true},
		{"inner wildcard order", "a*e*c:read", "abcde:read", false},
		{"wildcard must cover whole subsystem", "sal*:read", "xsales:read", false},
		{"empty wildcard match", "sales*:read", "sales:read", true},
		{"overlapping prefix and suffix", "ab*ba:read", "aba:read", false},
		{"question mark is literal", "sale?:read", "sales:read", false},
		{"question mark matches itself", "sale?:read", "sale?:read", true},
		{"bracket is literal", "[s]*:read", "sales:read", false},
		{"bracket with wildcard matches literally", "[s]*:read", "[s]ales:read", true},
		{"malformed pattern", "[:read", "sales:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.required.Grants(tt.held))
		})
	}
}

func TestParseScopes(t *testing.T) {
	assert.Equal(t, []string{"sales:read", "hr:admin", "reports"}, ParseScopes(" sales:read, hr:admin ,,reports "))
	assert.Equal(t, []string{}, ParseScopes(""))
	assert.Equal(t, []string{}, ParseScopes("  "))
}

func TestJoinScopes(t *testing.T) {
	assert.Equal(t, "a,b", JoinScopes([]string{"a", "b"}))
	assert.Equal(t, "", JoinScopes(nil))
}

func TestScopeSet_Satisfies_SupersetSemantics(t *testing.T) {
	ss := NewScopeSet("read", "write", "sales:admin")

	assert.True(t, ss.Satisfies())
	assert.True(t, ss.Satisfies("read"))
	assert.True(t, ss.Satisfies("read", "write"))
	assert.True(t, ss.Satisfies("read", "sales:export"))
	assert.False(t, ss.Satisfies("read", "delete"))
}

func TestScopeSet_Missing(t *testing.T) {
	ss := NewScopeSet("sales:read")

	assert.Equal(t, []string{"sales:write", "admin"}, ss.Missing("sales:read", "sales:write", "admin"))
	assert.Empty(t, ss.Missing("*:read"))
}

func TestScopeSet_List_SortedAndDeduplicated(t *testing.T) {
	ss := NewScopeSet("b", "a", "b", "")

	assert.Equal(t, []string{"a", "b"}, ss.List())
	assert.Equal(t, 2, ss.Size())
}

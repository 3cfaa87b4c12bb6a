package valueobject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID_GeneratesCanonicalUUID(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)

	parsed, err := ParseSessionID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.False(t, id.IsZero())
}

func TestNewSessionID_IsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := NewSessionID()
		require.NoError(t, err)
		_, dup := seen[id.String()]
		require.False(t, dup, "duplicate session id generated")
		seen[id.String()] = struct{}{}
	}
}

func TestParseSessionID_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrSessionIDEmpty},
		{"garbage", "not-a-session", ErrSessionIDInvalid},
		{"uppercase", "6BA7B810-9DAD-11D1-80B4-00C04FD430C8", ErrSessionIDInvalid},
		{"braces", "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", ErrSessionIDInvalid},
		{"urn", "urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8", ErrSessionIDInvalid},
		{"redis key injection", "session:*", ErrSessionIDInvalid},
		{"oversized", strings.Repeat("a", 4096), ErrSessionIDInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSessionID(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

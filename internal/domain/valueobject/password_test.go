package valueobject

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewPassword_VerifiesOriginal(t *testing.T) {
	p, err := NewPassword("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, p.Verify("s3cret-pass"))
	assert.False(t, p.Verify("wrong"))
}

func TestNewPassword_RejectsEmptyAndOversized(t *testing.T) {
	_, err := NewPassword("")
	assert.ErrorIs(t, err, ErrPasswordEmpty)

	_, err = NewPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestPasswordFromHash_Verify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	p := PasswordFromHash(string(hash))

	assert.True(t, p.Verify("hunter22"))
	assert.False(t, p.Verify("hunter23"))
}

func TestPassword_EmptyHash_NeverVerifies(t *testing.T) {
	assert.False(t, PasswordFromHash("").Verify(""))
}

func TestPassword_Cost(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	cost, err := PasswordFromHash(string(hash)).Cost()
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, err = PasswordFromHash("not-a-hash").Cost()
	assert.ErrorIs(t, err, ErrInvalidPasswordHash)
}

package valueobject

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxPasswordLength = 72 // bcryptが扱える最大バイト数

	// PasswordCost は新しく作るハッシュのbcryptコストです
	PasswordCost = 12
	// MinPasswordCost はアカウントファイルで許容する最小コストです
	MinPasswordCost = 10
)

var (
	ErrPasswordEmpty       = errors.New("password cannot be empty")
	ErrPasswordTooLong     = fmt.Errorf("password must be at most %d bytes", maxPasswordLength)
	ErrInvalidPasswordHash = errors.New("password hash is not a bcrypt hash")
)

// Password はハッシュ化済みパスワードを表す値オブジェクトです
type Password struct {
	hash string
}

// NewPassword は平文からハッシュ化したPasswordを作成します
func NewPassword(plaintext string) (Password, error) {
	if plaintext == "" {
		return Password{}, ErrPasswordEmpty
	}
	if len(plaintext) > maxPasswordLength {
		return Password{}, ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return Password{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return Password{hash: string(hash)}, nil
}

// PasswordFromHash は保存済みのハッシュからPasswordを作成します
// 形式は検証しません。検証が必要な場合は Cost を使います
func PasswordFromHash(hash string) Password {
	return Password{hash: hash}
}

// Hash はパスワードハッシュを返します
func (p Password) Hash() string {
	return p.hash
}

// Cost はハッシュのbcryptコストを返します
func (p Password) Cost() (int, error) {
	cost, err := bcrypt.Cost([]byte(p.hash))
	if err != nil {
		return 0, ErrInvalidPasswordHash
	}
	return cost, nil
}

// Verify は平文パスワードがハッシュと一致するか検証します
func (p Password) Verify(plaintext string) bool {
	if p.hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.hash), []byte(plaintext)) == nil
}

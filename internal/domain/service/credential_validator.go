package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/domain/valueobject"
)

// ErrInvalidCredentials は資格情報が正しくないことを表します
var ErrInvalidCredentials = errors.New("invalid credentials")

// Principal は資格情報の検証に成功した主体を表します
// Scopes が nil の場合、スコープは検証器では決定されていません
type Principal struct {
	Username string
	Scopes   []string
}

// CredentialValidator はユーザー名とパスワードを検証するインターフェースです
// 組み込み先のアプリケーションが起動時に注入します
type CredentialValidator interface {
	// Validate は資格情報を検証します
	// 不一致の場合は ErrInvalidCredentials を返します
	Validate(ctx context.Context, username, password string) (*Principal, error)
}

// CredentialValidatorFunc は真偽値を返す検証関数をCredentialValidatorとして使うためのアダプタです
type CredentialValidatorFunc func(username, password string) bool

// Validate はCredentialValidatorを実装します
func (f CredentialValidatorFunc) Validate(_ context.Context, username, password string) (*Principal, error) {
	if !f(username, password) {
		return nil, ErrInvalidCredentials
	}
	return &Principal{Username: username}, nil
}

// AccountCredentialValidator はAccountRepositoryのbcryptハッシュで資格情報を検証します
type AccountCredentialValidator struct {
	accounts repository.AccountRepository
}

// NewAccountCredentialValidator は新しいAccountCredentialValidatorを作成します
func NewAccountCredentialValidator(accounts repository.AccountRepository) *AccountCredentialValidator {
	return &AccountCredentialValidator{accounts: accounts}
}

// Validate はCredentialValidatorを実装します
func (v *AccountCredentialValidator) Validate(ctx context.Context, username, password string) (*Principal, error) {
	account, err := v.accounts.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		// 存在しないユーザーでも応答時間を揃える
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if !account.CanLogin() {
		return nil, ErrInvalidCredentials
	}
	if !valueobject.PasswordFromHash(account.PasswordHash).Verify(password) {
		return nil, ErrInvalidCredentials
	}

	return &Principal{
		Username: account.Username,
		Scopes:   entity.NormalizeScopes(account.Scopes),
	}, nil
}

var (
	dummyHashOnce  sync.Once
	dummyHashValue []byte
)

func dummyHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHashValue, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	})
	return dummyHashValue
}

var _ CredentialValidator = (*AccountCredentialValidator)(nil)
var _ CredentialValidator = CredentialValidatorFunc(nil)

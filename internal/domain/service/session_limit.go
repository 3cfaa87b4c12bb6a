package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jborjar/paquetes/internal/domain/repository"
)

// SessionLimitResolver はユーザーごとの最大セッション数を解決します
type SessionLimitResolver interface {
	MaxSessions(ctx context.Context, username string) (int, error)
}

// StaticSessionLimit は全ユーザーに同じ上限を適用します
type StaticSessionLimit int

// MaxSessions はSessionLimitResolverを実装します
func (l StaticSessionLimit) MaxSessions(context.Context, string) (int, error) {
	return int(l), nil
}

// AccountSessionLimit はアカウントの設定値を優先し、未設定ならデフォルト値を使います
type AccountSessionLimit struct {
	accounts repository.AccountRepository
	fallback int
}

// NewAccountSessionLimit は新しいAccountSessionLimitを作成します
func NewAccountSessionLimit(accounts repository.AccountRepository, fallback int) *AccountSessionLimit {
	return &AccountSessionLimit{accounts: accounts, fallback: fallback}
}

// MaxSessions はSessionLimitResolverを実装します
func (l *AccountSessionLimit) MaxSessions(ctx context.Context, username string) (int, error) {
	account, err := l.accounts.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return l.fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve max sessions: %w", err)
	}
	return account.SessionLimit(l.fallback), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jborjar/paquetes/internal/domain/entity"
	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/infrastructure/database"
)

const (
	findAccountSQL = `
SELECT username, password_hash, scopes, max_sessions, disabled
FROM app_users
WHERE username = $1`

	upsertAccountSQL = `
INSERT INTO app_users (username, password_hash, scopes, max_sessions, disabled)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE SET
    password_hash = EXCLUDED.password_hash,
    scopes        = EXCLUDED.scopes,
    max_sessions  = EXCLUDED.max_sessions,
    disabled      = EXCLUDED.disabled,
    updated_at    = NOW()`
)

// AccountRepository はapp_usersテーブルによるアカウントリポジトリの実装です
type AccountRepository struct {
	*database.BaseRepository
}

// NewAccountRepository は新しいAccountRepositoryを作成します
func NewAccountRepository(txManager *database.TxManager) *AccountRepository {
	return &AccountRepository{
		BaseRepository: database.NewBaseRepository(txManager),
	}
}

// FindByUsername はユーザー名でアカウントを検索します
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*entity.Account, error) {
	var (
		a           entity.Account
		scopes      []string
		maxSessions *int32
	)
	err := r.Querier(ctx).QueryRow(ctx, findAccountSQL, username).
		Scan(&a.Username, &a.PasswordHash, &scopes, &maxSessions, &a.Disabled)
	if err != nil {
		err = r.HandleError(err, repository.ErrAccountNotFound)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	a.Scopes = entity.NormalizeScopes(scopes)
	if maxSessions != nil {
		n := int(*maxSessions)
		a.MaxSessions = &n
	}
	return &a, nil
}

// Upsert はアカウントを作成または更新します
func (r *AccountRepository) Upsert(ctx context.Context, account *entity.Account) error {
	_, err := r.Querier(ctx).Exec(ctx, upsertAccountSQL,
		account.Username,
		account.PasswordHash,
		entity.NormalizeScopes(account.Scopes),
		account.MaxSessions,
		account.Disabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account %q: %w", account.Username, r.HandleError(err, nil))
	}
	return nil
}

// UpsertAll は全アカウントを1トランザクションで作成または更新します
func (r *AccountRepository) UpsertAll(ctx context.Context, accounts []*entity.Account) error {
	return r.TxManager().WithTransaction(ctx, func(ctx context.Context) error {
		for _, account := range accounts {
			if err := r.Upsert(ctx, account); err != nil {
				return err
			}
		}
		return nil
	})
}

// インターフェースの実装を保証
var _ repository.AccountRepository = (*AccountRepository)(nil)

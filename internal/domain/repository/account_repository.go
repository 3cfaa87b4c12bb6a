package repository

import (
	"context"
	"errors"

	"github.com/jborjar/paquetes/internal/domain/entity"
)

// ErrAccountNotFound はアカウントが存在しないことを表します
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository はログインアカウントの参照先を定義します
type AccountRepository interface {
	// FindByUsername はユーザー名でアカウントを検索します
	// 存在しない場合は ErrAccountNotFound を返します
	FindByUsername(ctx context.Context, username string) (*entity.Account, error)
}

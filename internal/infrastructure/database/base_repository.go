package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQLのエラーコード
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// ErrConflict は一意制約違反を表します
var ErrConflict = errors.New("record already exists")

// BaseRepository はリポジトリの基底構造体
type BaseRepository struct {
	txManager *TxManager
}

// NewBaseRepository は新しいBaseRepositoryを作成する
func NewBaseRepository(txManager *TxManager) *BaseRepository {
	return &BaseRepository{txManager: txManager}
}

// Querier はクエリ実行用のインターフェースを返す
func (r *BaseRepository) Querier(ctx context.Context) Querier {
	return r.txManager.Querier(ctx)
}

// TxManager はトランザクションマネージャーを返す
func (r *BaseRepository) TxManager() *TxManager {
	return r.txManager
}

// HandleError はpgxのエラーをリポジトリのエラーに変換する
// 行が無い場合は notFound を返します
func (r *BaseRepository) HandleError(err error, notFound error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("check constraint %s violated: %s", pgErr.ConstraintName, pgErr.Message)
		}
	}

	return err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jborjar/paquetes/internal/domain/entity"
)

// ErrSessionNotFound はセッションが存在しないことを表します
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository はセッションの永続化先（ストレージバックエンド）を定義します
// 各メソッドは1レコード単位でアトミックでなければなりません
type SessionRepository interface {
	// Save はセッションを保存します（存在する場合は上書き）
	Save(ctx context.Context, session *entity.Session) error

	// FindByID はIDでセッションを検索します
	// 存在しない場合は ErrSessionNotFound を返します
	FindByID(ctx context.Context, sessionID string) (*entity.Session, error)

	// Touch は既存セッションの最終アクティビティのみを更新します
	// レコードが存在しない場合は false を返し、新規作成はしません
	Touch(ctx context.Context, sessionID string, lastActivity time.Time) (bool, error)

	// Delete はセッションを削除し、削除したかどうかを返します
	Delete(ctx context.Context, sessionID string) (bool, error)

	// FindByUsername はユーザーの全セッションを取得します（期限切れを含む）
	FindByUsername(ctx context.Context, username string) ([]*entity.Session, error)

	// FindAll は全セッションを取得します（期限切れを含む）
	FindAll(ctx context.Context) ([]*entity.Session, error)
}

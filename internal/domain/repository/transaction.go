package repository

import "context"

// TransactionManager は複数の書き込みを1つの単位で確定させます
// アカウントの一括取り込みのように、途中で失敗したら何も残してはならない処理で使います
// fn に渡される ctx を使ったリポジトリ呼び出しは同じトランザクションに参加します
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

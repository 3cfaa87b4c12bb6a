// Package sqlstore はdatabase/sql経由の組み込みSQLiteによるセッションストアを提供します
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// MemoryPath はプロセス内のみのデータベースを表すパスです
const MemoryPath = ":memory:"

// Open はSQLiteデータベースを開きます
// 書き込みを直列化するため接続数は1に制限します
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := MemoryPath
	if path != "" && path != MemoryPath {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	return db, nil
}

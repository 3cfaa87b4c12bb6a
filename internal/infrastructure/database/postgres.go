package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const (
	connMaxLifetime   = time.Hour
	connMaxIdleTime   = 30 * time.Minute
	healthCheckPeriod = time.Minute
)

// PoolConfig は接続プールの大きさです。0の項目はpgxpoolの既定値を使います
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PostgresClient はセッションとアカウントのテーブルが共有する接続プールです
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient はプールを作成し、疎通を確認します
func NewPostgresClient(ctx context.Context, databaseURL string, cfg PoolConfig) (*PostgresClient, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= poolConfig.MaxConns {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = connMaxLifetime
	poolConfig.MaxConnIdleTime = connMaxIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

// NewPostgresClientFromPool は呼び出し側が所有するプールを包みます
func NewPostgresClientFromPool(pool *pgxpool.Pool) *PostgresClient {
	return &PostgresClient{pool: pool}
}

// Pool はコネクションプールを返します
func (c *PostgresClient) Pool() *pgxpool.Pool {
	return c.pool
}

// SQLDB はマイグレーション用に、プールを共有する *sql.DB を返します
// 返した *sql.DB を閉じてもプールは閉じられません
func (c *PostgresClient) SQLDB() *sql.DB {
	return stdlib.OpenDBFromPool(c.pool)
}

// Close はコネクションプールを閉じます
func (c *PostgresClient) Close() {
	c.pool.Close()
}

// Health はレディネスチェック用にPINGを送ります
func (c *PostgresClient) Health(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

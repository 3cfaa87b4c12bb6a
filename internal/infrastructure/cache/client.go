package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultPingTimeout は接続確認に使うタイムアウトです
const defaultPingTimeout = 5 * time.Second

// Options はRedis接続の調整項目です
// ゼロ値の項目はURLまたはgo-redisの既定値がそのまま使われます
type Options struct {
	PoolSize    int
	DialTimeout time.Duration
	// IOTimeout は読み取りと書き込みの両方に適用されます
	IOTimeout time.Duration
}

// RedisClient はセッションストアとレートリミッターが共有するRedis接続です
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient はURLからRedisへ接続し、PINGで疎通を確認します
func NewRedisClient(ctx context.Context, url string, o Options) (*RedisClient, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	o.apply(opt)

	client := redis.NewClient(opt)

	timeout := o.DialTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisClient{client: client}, nil
}

func (o Options) apply(opt *redis.Options) {
	if o.PoolSize > 0 {
		opt.PoolSize = o.PoolSize
	}
	if o.DialTimeout > 0 {
		opt.DialTimeout = o.DialTimeout
	}
	if o.IOTimeout > 0 {
		opt.ReadTimeout = o.IOTimeout
		opt.WriteTimeout = o.IOTimeout
	}
}

// WrapClient は呼び出し側が所有するredis.Clientを包みます
func WrapClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Client は内部のredis.Clientを返します
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

// Close はRedis接続を閉じます
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Health はレディネスチェック用にPINGを送ります
func (r *RedisClient) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

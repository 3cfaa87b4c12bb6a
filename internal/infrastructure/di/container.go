package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jborjar/paquetes/internal/domain/repository"
	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/infrastructure/cache"
	"github.com/jborjar/paquetes/internal/infrastructure/database"
	"github.com/jborjar/paquetes/internal/infrastructure/database/migrate"
	"github.com/jborjar/paquetes/internal/infrastructure/filestore"
	"github.com/jborjar/paquetes/internal/infrastructure/ratelimit"
	infraRepo "github.com/jborjar/paquetes/internal/infrastructure/repository"
	"github.com/jborjar/paquetes/internal/infrastructure/sqlstore"
	"github.com/jborjar/paquetes/internal/infrastructure/userfile"
	"github.com/jborjar/paquetes/pkg/config"
	"github.com/jborjar/paquetes/pkg/logger"
)

// Container はアプリケーションの依存関係を保持するDIコンテナです
type Container struct {
	// Infrastructure
	PgClient    *database.PostgresClient
	RedisClient *cache.RedisClient
	SQLiteDB    *sql.DB
	TxManager   *database.TxManager
	UsersFile   *userfile.Store

	// Services
	RateLimiter    ratelimit.Limiter
	SessionService *service.SessionService
	Credentials    service.CredentialValidator
	SessionLimits  service.SessionLimitResolver

	// Repositories
	SessionRepo repository.SessionRepository
	AccountRepo repository.AccountRepository

	// Auth UseCases
	Auth *AuthUseCases

	// config
	config *config.Config

	// 外部から渡された接続は閉じない
	ownsPostgres bool
	ownsRedis    bool
}

// Options はContainer作成時のオプションを定義します
// 指定されたものは設定からの生成より優先されます
type Options struct {
	PostgresPool *pgxpool.Pool
	RedisClient  *redis.Client
	SessionRepo  repository.SessionRepository
	// Credentials を指定した場合、アカウントソースは読み込みません
	Credentials service.CredentialValidator
	Accounts    repository.AccountRepository
	Clock       func() time.Time
}

// NewContainer は新しいContainerを作成します
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewContainerWithOptions(ctx, cfg, Options{})
}

// NewContainerWithOptions はオプションを指定してContainerを作成します
func NewContainerWithOptions(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{
		config: cfg,
	}

	if err := c.initSessionBackend(ctx, opts); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.initAccounts(ctx, opts); err != nil {
		c.Close()
		return nil, err
	}

	// Rate limiter: Redisがあればインスタンス間で共有する
	if c.RedisClient != nil {
		c.RateLimiter = cache.NewRateLimiter(c.RedisClient.Client())
	} else {
		c.RateLimiter = ratelimit.NewLocalLimiter()
	}

	var svcOpts []service.SessionServiceOption
	if opts.Clock != nil {
		svcOpts = append(svcOpts, service.WithClock(opts.Clock))
	}
	sessionService, err := service.NewSessionService(c.SessionRepo, cfg.Session.TTL, svcOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}
	c.SessionService = sessionService

	c.Auth = NewAuthUseCases(c)
	if c.UsersFile != nil {
		c.UsersFile.SetRevokeFunc(c.Auth.LogoutAll.Execute)
	}

	return c, nil
}

// initSessionBackend は設定されたセッションバックエンドを初期化します
func (c *Container) initSessionBackend(ctx context.Context, opts Options) error {
	if opts.SessionRepo != nil {
		c.SessionRepo = opts.SessionRepo
		return nil
	}

	backend := c.config.Session.Backend
	logger.Info(ctx, "initializing session backend", "backend", backend)

	switch backend {
	case config.BackendMemory, "":
		c.SessionRepo = filestore.NewMemorySessionStore()

	case config.BackendFile:
		store, err := filestore.NewSessionStore(c.config.Session.FilePath)
		if err != nil {
			return fmt.Errorf("failed to open session file: %w", err)
		}
		c.SessionRepo = store

	case config.BackendRedis:
		if err := c.connectRedis(ctx, opts); err != nil {
			return err
		}
		c.SessionRepo = cache.NewSessionStore(c.RedisClient.Client(), c.config.Session.RedisRetention)

	case config.BackendPostgres:
		if err := c.connectPostgres(ctx, opts); err != nil {
			return err
		}
		c.SessionRepo = infraRepo.NewSessionRepository(c.TxManager)

	case config.BackendSQLite:
		db, err := sqlstore.Open(ctx, c.config.SQLite.Path)
		if err != nil {
			return err
		}
		c.SQLiteDB = db
		if err := migrate.Run(db, migrate.DialectSQLite); err != nil {
			return fmt.Errorf("failed to migrate sqlite: %w", err)
		}
		c.SessionRepo = sqlstore.NewSessionStore(db)

	default:
		return fmt.Errorf("unsupported session backend %q", backend)
	}
	return nil
}

// initAccounts は資格情報の検証とセッション上限の解決を初期化します
func (c *Container) initAccounts(ctx context.Context, opts Options) error {
	fallback := c.config.Session.DefaultMaxSessions

	if opts.Credentials != nil {
		c.Credentials = opts.Credentials
		if opts.Accounts != nil {
			c.AccountRepo = opts.Accounts
			c.SessionLimits = service.NewAccountSessionLimit(opts.Accounts, fallback)
		} else {
			c.SessionLimits = service.StaticSessionLimit(fallback)
		}
		return nil
	}

	switch {
	case opts.Accounts != nil:
		c.AccountRepo = opts.Accounts

	case c.config.Auth.AccountSource == config.AccountSourcePostgres:
		if err := c.connectPostgres(ctx, opts); err != nil {
			return err
		}
		c.AccountRepo = infraRepo.NewAccountRepository(c.TxManager)

	default:
		store, err := userfile.Load(c.config.Auth.UsersFile)
		if err != nil {
			return fmt.Errorf("failed to load accounts file: %w", err)
		}
		logger.Info(ctx, "accounts file loaded", "path", store.Path(), "accounts", store.Len())
		c.UsersFile = store
		c.AccountRepo = store
	}

	c.Credentials = service.NewAccountCredentialValidator(c.AccountRepo)
	c.SessionLimits = service.NewAccountSessionLimit(c.AccountRepo, fallback)
	return nil
}

// connectRedis はRedisへ接続します。接続済みの場合は何もしません
func (c *Container) connectRedis(ctx context.Context, opts Options) error {
	if c.RedisClient != nil {
		return nil
	}
	if opts.RedisClient != nil {
		c.RedisClient = cache.WrapClient(opts.RedisClient)
		return nil
	}

	logger.Info(ctx, "connecting to Redis...")
	client, err := cache.NewRedisClient(ctx, c.config.Redis.URL, cache.Options{
		PoolSize:    c.config.Redis.PoolSize,
		DialTimeout: c.config.Redis.DialTimeout,
		IOTimeout:   c.config.Redis.IOTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	c.RedisClient = client
	c.ownsRedis = true
	logger.Info(ctx, "connected to Redis")
	return nil
}

// connectPostgres はPostgreSQLへ接続し、必要であればマイグレーションを適用します
// 接続済みの場合は何もしません
func (c *Container) connectPostgres(ctx context.Context, opts Options) error {
	if c.PgClient != nil {
		return nil
	}

	if opts.PostgresPool != nil {
		c.PgClient = database.NewPostgresClientFromPool(opts.PostgresPool)
	} else {
		logger.Info(ctx, "connecting to PostgreSQL...")
		pgClient, err := database.NewPostgresClient(ctx, c.config.Database.URL, database.PoolConfig{
			MaxConns: c.config.Database.MaxConns,
			MinConns: c.config.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		c.PgClient = pgClient
		c.ownsPostgres = true
		logger.Info(ctx, "connected to PostgreSQL")
	}
	c.TxManager = database.NewTxManager(c.PgClient.Pool())

	if c.config.Database.AutoMigrate {
		if err := migrate.Run(c.PgClient.SQLDB(), migrate.DialectPostgres); err != nil {
			return fmt.Errorf("failed to migrate PostgreSQL: %w", err)
		}
	}
	return nil
}

// Config は設定を返します
func (c *Container) Config() *config.Config {
	return c.config
}

// Close はリソースをクリーンアップします
func (c *Container) Close() error {
	var errs []error

	if c.PgClient != nil && c.ownsPostgres {
		c.PgClient.Close()
	}

	if c.RedisClient != nil && c.ownsRedis {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.SQLiteDB != nil {
		if err := c.SQLiteDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close SQLite: %w", err))
		}
	}

	return errors.Join(errs...)
}

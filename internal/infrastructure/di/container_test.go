package di

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/internal/infrastructure/filestore"
	"github.com/jborjar/paquetes/internal/infrastructure/ratelimit"
	"github.com/jborjar/paquetes/internal/infrastructure/sqlstore"
	"github.com/jborjar/paquetes/internal/infrastructure/userfile"
	"github.com/jborjar/paquetes/internal/usecase/auth/command"
	"github.com/jborjar/paquetes/pkg/config"
)

func writeUsersFile(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "users.yaml")
	content := "users:\n" +
		"  - username: alice\n" +
		"    password_hash: " + string(hash) + "\n" +
		"    scopes: [sessions:admin]\n" +
		"    max_sessions: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Session: config.SessionConfig{
			TTL:                30 * time.Minute,
			DefaultMaxSessions: 1,
			Backend:            config.BackendMemory,
			CookieName:         "Sesion_Auth",
		},
		Auth: config.AuthConfig{
			AccountSource:   config.AccountSourceFile,
			UsersFile:       writeUsersFile(t),
			WatchUsersFile:  true,
			LoginRateLimit:  5,
			LoginRateWindow: time.Minute,
		},
		Worker: config.WorkerConfig{
			CleanupInterval:     time.Minute,
			HealthCheckInterval: time.Minute,
		},
	}
}

func TestNewContainer_MemoryBackendWithUsersFile(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.IsType(t, &filestore.SessionStore{}, c.SessionRepo)
	assert.IsType(t, &userfile.Store{}, c.AccountRepo)
	assert.IsType(t, &ratelimit.LocalLimiter{}, c.RateLimiter)
	assert.Equal(t, 30*time.Minute, c.SessionService.TTL())

	// アカウントファイルの max_sessions が上限として使われる
	login := c.Auth.Login
	var ids []string
	for i := 0; i < 3; i++ {
		out, err := login.Execute(ctx, command.LoginInput{Username: "alice", Password: "s3cret"})
		require.NoError(t, err)
		assert.Equal(t, []string{"sessions:admin"}, out.Session.Scopes)
		ids = append(ids, out.Session.ID)
	}
	active, err := c.SessionService.GetActiveSessions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = login.Execute(ctx, command.LoginInput{Username: "alice", Password: "wrong"})
	assert.Error(t, err)

	handlers := NewHandlers(c)
	assert.NotNil(t, handlers.Auth)
	assert.NotNil(t, handlers.Session)
	assert.Empty(t, handlers.Health.Names())

	mw := NewMiddlewares(c)
	assert.Equal(t, "Sesion_Auth", mw.SessionAuth.CookieName())
	assert.Equal(t, 5, mw.LoginRule.Requests)

	mgr := NewWorkerManager(c, handlers.Health)
	assert.Equal(t, []string{"session_cleanup", "accounts_watch"}, mgr.Jobs())
}

func TestNewContainer_SQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = config.BackendSQLite
	cfg.SQLite.Path = sqlstore.MemoryPath
	cfg.Auth.WatchUsersFile = false

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.SQLiteDB)
	assert.IsType(t, &sqlstore.SessionStore{}, c.SessionRepo)

	health := NewHealthHandler(c)
	assert.Equal(t, []string{"sqlite"}, health.Names())
	assert.Empty(t, health.CheckAll(context.Background()))

	mgr := NewWorkerManager(c, health)
	assert.Equal(t, []string{"session_cleanup", "health_check"}, mgr.Jobs())
}

func TestNewContainer_FileBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = config.BackendFile
	cfg.Session.FilePath = filepath.Join(t.TempDir(), "sessions.json")

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.SessionService.CreateSession(context.Background(), "alice", nil, 1)
	require.NoError(t, err)
	assert.FileExists(t, cfg.Session.FilePath)
}

func TestNewContainer_InjectedCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.UsersFile = filepath.Join(t.TempDir(), "missing.yaml")

	c, err := NewContainerWithOptions(context.Background(), cfg, Options{
		SessionRepo: filestore.NewMemorySessionStore(),
		Credentials: service.CredentialValidatorFunc(func(u, p string) bool { return u == "bob" && p == "pw" }),
	})
	require.NoError(t, err)

	assert.Nil(t, c.UsersFile)
	out, err := c.Auth.Login.Execute(context.Background(), command.LoginInput{
		Username: "bob",
		Password: "pw",
		Scopes:   []string{"reports"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"reports"}, out.Session.Scopes)
}

func TestNewContainer_Errors(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Session.Backend = "carrier-pigeon"

		_, err := NewContainer(context.Background(), cfg)
		assert.ErrorContains(t, err, "unsupported session backend")
	})

	t.Run("missing users file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.UsersFile = filepath.Join(t.TempDir(), "missing.yaml")

		_, err := NewContainer(context.Background(), cfg)
		assert.ErrorContains(t, err, "failed to load accounts file")
	})

	t.Run("invalid ttl", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Session.TTL = 0

		_, err := NewContainer(context.Background(), cfg)
		assert.ErrorIs(t, err, service.ErrInvalidTTL)
	})
}

func TestJoinFailures(t *testing.T) {
	assert.NoError(t, joinFailures(nil))

	err := joinFailures(map[string]error{
		"redis":    errors.New("timeout"),
		"postgres": errors.New("refused"),
	})
	assert.EqualError(t, err, "postgres: refused\nredis: timeout")
}

func TestNewContainer_AccountsFileChange_RevokesSessions(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	c, err := NewContainer(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	out, err := c.Auth.Login.Execute(ctx, command.LoginInput{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	// パスワードを変更したファイルに差し替える
	hash, err := bcrypt.GenerateFromPassword([]byte("rotated"), bcrypt.MinCost)
	require.NoError(t, err)
	content := "users:\n" +
		"  - username: alice\n" +
		"    password_hash: " + string(hash) + "\n" +
		"    scopes: [sessions:admin]\n"
	require.NoError(t, os.WriteFile(cfg.Auth.UsersFile, []byte(content), 0o600))

	require.NoError(t, c.UsersFile.Refresh(ctx))

	session, err := c.SessionService.ValidateSession(ctx, out.Session.ID, false)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = c.Auth.Login.Execute(ctx, command.LoginInput{Username: "alice", Password: "rotated"})
	assert.NoError(t, err)
}

package testutil

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/jborjar/paquetes/internal/infrastructure/di"
	"github.com/jborjar/paquetes/internal/interface/middleware"
	"github.com/jborjar/paquetes/internal/interface/router"
	"github.com/jborjar/paquetes/internal/interface/server"
	"github.com/jborjar/paquetes/pkg/config"
)

// Test accounts written to the users file of every TestServer
const (
	AdminUsername = "admin"
	AdminPassword = "admin-pass"
	AliceUsername = "alice"
	AlicePassword = "alice-pass"
	BobUsername   = "bob"
	BobPassword   = "bob-pass"

	// AliceMaxSessions overrides the default limit for alice
	AliceMaxSessions = 2
	// DefaultMaxSessions applies to accounts without an override
	DefaultMaxSessions = 3
	// SessionTTL is the inactivity timeout of the test server
	SessionTTL = 30 * time.Minute
)

// Clock is a manually advanced clock shared by the test server and the test
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// TestServer holds all test server dependencies
type TestServer struct {
	Echo      *echo.Echo
	Container *di.Container
	Clock     *Clock
	Config    *config.Config
}

// ServerOption customizes the configuration of a TestServer
type ServerOption func(cfg *config.Config)

// WithBackend selects the session storage backend
func WithBackend(backend string) ServerOption {
	return func(cfg *config.Config) {
		cfg.Session.Backend = backend
	}
}

// WithCSRF enables the CSRF middleware
func WithCSRF() ServerOption {
	return func(cfg *config.Config) {
		cfg.Security.EnableCSRF = true
	}
}

// WithLoginRateLimit overrides the per-IP login rate limit
func WithLoginRateLimit(requests int, window time.Duration) ServerOption {
	return func(cfg *config.Config) {
		cfg.Auth.LoginRateLimit = requests
		cfg.Auth.LoginRateWindow = window
	}
}

type usersFile struct {
	Users []userRecord `yaml:"users"`
}

type userRecord struct {
	Username     string   `yaml:"username"`
	PasswordHash string   `yaml:"password_hash"`
	Scopes       []string `yaml:"scopes,omitempty"`
	MaxSessions  *int     `yaml:"max_sessions,omitempty"`
}

// WriteUsersFile writes the test accounts to a temporary users file
func WriteUsersFile(t *testing.T) string {
	t.Helper()

	hash := func(password string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		return string(h)
	}
	aliceMax := AliceMaxSessions

	data, err := yaml.Marshal(usersFile{Users: []userRecord{
		{Username: AdminUsername, PasswordHash: hash(AdminPassword), Scopes: []string{"sessions:admin"}},
		{Username: AliceUsername, PasswordHash: hash(AlicePassword), Scopes: []string{"sales:read", "reports"}, MaxSessions: &aliceMax},
		{Username: BobUsername, PasswordHash: hash(BobPassword)},
	}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// NewTestConfig returns the configuration used by NewTestServer before options are applied
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()
	testCfg := DefaultTestConfig()

	return &config.Config{
		Session: config.SessionConfig{
			TTL:                SessionTTL,
			DefaultMaxSessions: DefaultMaxSessions,
			Backend:            config.BackendMemory,
			CookieName:         middleware.DefaultSessionCookieName,
		},
		Database: config.DatabaseConfig{
			URL:         testCfg.DatabaseURL,
			AutoMigrate: true,
		},
		Redis: config.RedisConfig{
			URL: testCfg.RedisURL,
		},
		Auth: config.AuthConfig{
			AccountSource:   config.AccountSourceFile,
			UsersFile:       WriteUsersFile(t),
			LoginRateLimit:  100,
			LoginRateWindow: time.Minute,
		},
	}
}

// NewTestServer creates a fully configured test server
// The redis and postgres backends reuse the connections of SetupTestEnvironment.
func NewTestServer(t *testing.T, opts ...ServerOption) *TestServer {
	t.Helper()

	cfg := NewTestConfig(t)
	for _, opt := range opts {
		opt(cfg)
	}

	clock := NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	containerOpts := di.Options{Clock: clock.Now}

	switch cfg.Session.Backend {
	case config.BackendRedis:
		_, redisClient := SetupTestEnvironment(t)
		FlushRedis(t, redisClient)
		containerOpts.RedisClient = redisClient
	case config.BackendPostgres:
		pool, _ := SetupTestEnvironment(t)
		containerOpts.PostgresPool = pool
	}

	container, err := di.NewContainerWithOptions(context.Background(), cfg, containerOpts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	if container.PgClient != nil {
		TruncateTables(t, container.PgClient.Pool(), "user_sessions")
	}

	handlers := di.NewHandlers(container)
	middlewares := di.NewMiddlewares(container)

	srv := server.NewServer(server.DefaultConfig())
	e := srv.Echo()
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if cfg.Security.EnableCSRF {
		e.Use(middleware.CSRF(middleware.CSRFConfig{
			SessionCookieName: cfg.Session.CookieName,
			Skipper: func(c echo.Context) bool {
				return c.Path() == router.LoginPath
			},
		}))
	}
	router.NewRouter(e, handlers, middlewares).Setup()

	return &TestServer{
		Echo:      e,
		Container: container,
		Clock:     clock,
		Config:    cfg,
	}
}

// Login logs in through the API and returns the session id
func (ts *TestServer) Login(t *testing.T, username, password string) string {
	t.Helper()

	resp := DoRequest(t, ts.Echo, HTTPRequest{
		Method: http.MethodPost,
		Path:   router.LoginPath,
		Body: map[string]string{
			"username": username,
			"password": password,
		},
	})
	resp.AssertStatus(http.StatusOK)

	sessionID, ok := resp.GetJSONData()["session_id"].(string)
	require.True(t, ok, "login response has no session_id: %s", resp.Body.String())
	return sessionID
}

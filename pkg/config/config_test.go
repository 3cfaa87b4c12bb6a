package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithoutTTL_ReturnsError(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("JWT_EXPIRATION_MINUTES", "")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL_MINUTES is required")
}

func TestLoad_NonPositiveTTL_ReturnsError(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 1, cfg.Session.DefaultMaxSessions)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, "Sesion_Auth", cfg.Session.CookieName)
	assert.False(t, cfg.Session.CookieSecure)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, AccountSourceFile, cfg.Auth.AccountSource)
	assert.Equal(t, 15*time.Minute, cfg.Worker.CleanupInterval)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)
	assert.Zero(t, cfg.Redis.PoolSize)
}

func TestLoad_LegacyTTLName_IsAccepted(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("JWT_EXPIRATION_MINUTES", "45")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
}

func TestLoad_Production_EnablesSecureCookie(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.True(t, cfg.Session.CookieSecure)
	assert.True(t, cfg.Security.EnableHSTS)
}

func TestLoad_TrustProxy(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Server.TrustProxy)

	t.Setenv("SERVER_TRUST_PROXY", "true")

	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoad_RedisRetention(t *testing.T) {
	tests := []struct {
		name      string
		retention string
		wantErr   bool
	}{
		{name: "unset", retention: "", wantErr: false},
		{name: "equal to ttl", retention: "30m", wantErr: false},
		{name: "longer than ttl", retention: "24h", wantErr: false},
		{name: "shorter than ttl", retention: "1m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SESSION_TTL_MINUTES", "30")
			t.Setenv("SESSION_BACKEND", "redis")
			t.Setenv("SESSION_REDIS_RETENTION", tt.retention)

			cfg, err := Load()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "SESSION_REDIS_RETENTION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
		})
	}
}

func TestLoad_InvalidBackend_ReturnsError(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("SESSION_BACKEND", "mssql")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_BACKEND")
}

func TestLoad_InvalidMaxSessions_ReturnsError(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("DEFAULT_MAX_SESSIONS", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_MAX_SESSIONS")
}

func TestLoad_ConfigFile_EnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[session]
ttl_minutes = 20
backend = "sqlite"

[default]
max_sessions = 4

[cors]
origins = ["https://a.example", "https://b.example"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("SESSION_BACKEND", "redis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, cfg.Session.TTL)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 4, cfg.Session.DefaultMaxSessions)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSOrigins)
}

func TestLoad_MissingConfigFile_ReturnsError(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("SESSION_TTL_MINUTES", "30")

	_, err := Load()

	require.Error(t, err)
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_PATH", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
		"GRANT_DOMAIN_ID", "GRANT_REFRESH_SPEC",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"AUTH_ISSUER_URL", "AUTH_JWKS_URL", "JWT_SECRET", "AUTH_AUDIENCE",
		"AUTH_ALLOWED_ISSUERS", "AUTH_JWKS_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "permissions.sqlite", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, int64(1), cfg.GrantDomainID)
	assert.Equal(t, "@every 30m", cfg.GrantRefreshSpec)
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/perm.sqlite")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("GRANT_DOMAIN_ID", "123")
	t.Setenv("GRANT_REFRESH_SPEC", "@every 5m")
	t.Setenv("RATE_LIMIT_RPS", "10")
	t.Setenv("RATE_LIMIT_BURST", "20")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, https://b.test")
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.test")
	t.Setenv("AUTH_AUDIENCE", "permissions-manager")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/perm.sqlite", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, int64(123), cfg.GrantDomainID)
	assert.Equal(t, "@every 5m", cfg.GrantRefreshSpec)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.Auth.OIDCEnabled())
}

func TestLoadFromEnv_BadDomainID(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRANT_DOMAIN_ID", "not-a-number")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_IssuerRequiresAudience(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.test")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_ProductionRequiresOIDC(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ui.test")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoadFromEnv_ProductionRejectsCORSWildcard(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_ISSUER_URL", "https://issuer.test")
	t.Setenv("AUTH_AUDIENCE", "permissions-manager")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "WARN"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "error"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: ""}).SlogLevel())
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nDB_PATH=/tmp/fromdotenv.sqlite\nLOG_LEVEL=\"debug\"\n\nBROKEN LINE\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "/tmp/fromdotenv.sqlite", os.Getenv("DB_PATH"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
}

func TestLoadDotEnv_EnvTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PATH", "/tmp/fromenv.sqlite")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_PATH=/tmp/fromdotenv.sqlite\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "/tmp/fromenv.sqlite", os.Getenv("DB_PATH"))
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

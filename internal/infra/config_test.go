package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 байта, минимум для HS256

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, 50.0, cfg.Server.RateLimitRPS)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Server.DebugRoutes)

	assert.Equal(t, "postgres://localhost:5432/phishguard", cfg.Database.URL)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)

	assert.Equal(t, "HS256", cfg.Auth.JWTAlgorithm)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)

	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.Equal(t, "http://localhost:8000/api/stats", cfg.Watch.Endpoint)

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadConfigEnvAliases(t *testing.T) {
	// Имена переменных деплой-дескриптора, не нашей структуры ключей
	t.Setenv("SECRET_KEY", testSecret)
	t.Setenv("PORT", "9001")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "sqlite://./dev.db")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "sqlite://./dev.db", cfg.Database.URL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoadConfigFromExplicitFile(t *testing.T) {
	t.Setenv("SECRET_KEY", testSecret)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
watch:
  interval: 5s
scanner:
  model_path: /opt/models/xgb.json
`), 0o644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Watch.Interval)
	assert.Equal(t, "/opt/models/xgb.json", cfg.Scanner.ModelPath)
	// незатронутые ключи остаются дефолтными
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadConfigFromMissingFile(t *testing.T) {
	t.Setenv("SECRET_KEY", testSecret)

	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1", Port: 8000,
			RateLimitRPS: 50, RateLimitBurst: 100, MaxBodyBytes: 1 << 20,
		},
		Database: DatabaseConfig{URL: "sqlite://./dev.db"},
		Auth: AuthConfig{
			JWTSecret: testSecret, JWTAlgorithm: "HS256",
			JWTExpiryMinutes: 30, BcryptCost: 12,
		},
		Watch: WatchConfig{Interval: 30 * time.Second},
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero rps", func(c *Config) { c.Server.RateLimitRPS = 0 }, "rate_limit_rps"},
		{"empty database url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"bad database scheme", func(c *Config) { c.Database.URL = "mysql://x" }, "not supported"},
		{"unknown jwt algorithm", func(c *Config) { c.Auth.JWTAlgorithm = "XX999" }, "signing method"},
		{"short hmac secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32 bytes"},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 99 }, "bcrypt_cost"},
		{"zero watch interval", func(c *Config) { c.Watch.Interval = 0 }, "watch.interval"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errSub)
		})
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"https://a.com", "https://b.com"},
		splitOrigins([]string{"https://a.com,https://b.com"}))
	assert.Equal(t, []string{"*"}, splitOrigins([]string{"*"}))
	assert.Empty(t, splitOrigins([]string{" , "}))
}

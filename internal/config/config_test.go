package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultTestConfig(t *testing.T) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultTestConfig(t)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, SSLModeRequire, cfg.Database.SSLMode)
	assert.Equal(t, "migrations", cfg.Database.MigrationPath)
	assert.False(t, cfg.Database.MigrationAutoRun)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "permit_review", cfg.Metrics.Namespace)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, "notifications.permits.review", cfg.Notifications.Topic)
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects invalid http port", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		cfg.Server.HTTPPort = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty database host", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		cfg.Database.Host = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects max_conns below min_conns", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		cfg.Database.MaxConns = 2
		cfg.Database.MinConns = 5
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects enabled notifications without brokers", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		cfg.Notifications.Enabled = true
		cfg.Notifications.Brokers = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects enabled notifications without topic", func(t *testing.T) {
		cfg := defaultTestConfig(t)
		cfg.Notifications.Enabled = true
		cfg.Notifications.Topic = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:           "db.internal",
		Port:           5432,
		User:           "permitreview",
		Password:       "s3cret/with:chars",
		Name:           "permit_review_service",
		SSLMode:        SSLModeDisable,
		ConnectTimeout: 10 * time.Second,
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://permitreview:")
	assert.Contains(t, dsn, "@db.internal:5432/permit_review_service")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=10")
	assert.NotContains(t, dsn, "s3cret/with:chars")
}

func TestAddresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080, MetricsPort: 9091}

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PERMITREVIEW_DATABASE_PASSWORD", "from-env")
	t.Setenv("PERMITREVIEW_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

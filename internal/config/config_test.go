package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE", "")
	t.Setenv("BROKER", "")
	t.Setenv("USER_TOKEN_TTL", "")
	t.Setenv("ADMIN_TOKEN_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMySQL, cfg.Storage)
	assert.Equal(t, BrokerNone, cfg.Broker)
	assert.Equal(t, 7*24*time.Hour, cfg.UserTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.NotNil(t, cfg.ReportTZ)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("STORAGE", "mongo")
	_, err := Load()
	assert.ErrorContains(t, err, "STORAGE")

	t.Setenv("STORAGE", "memory")
	t.Setenv("BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "")
	_, err = Load()
	assert.ErrorContains(t, err, "KAFKA_BROKERS")
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "app", DBPass: "pw", DBHost: "db", DBPort: "3307", DBName: "shop"}
	assert.Equal(t, "app:pw@tcp(db:3307)/shop?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true", cfg.DSN())
}

func TestRateLimitClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 50*time.Second, rl.TTL)
}

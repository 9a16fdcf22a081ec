package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("ESCALATION_ENFORCE_TRANSITIONS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Redis.Addr, "redis is opt-in")

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, time.Minute, cfg.Cache.HistoryTTL())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Mail.Enabled())
	assert.False(t, cfg.Escalation.EnforceTransitions)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("ESCALATION_ENFORCE_TRANSITIONS", "true")
	t.Setenv("CACHE_HISTORY_TTL_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.True(t, cfg.Mail.Enabled())
	assert.Equal(t, 2525, cfg.Mail.Port)
	assert.True(t, cfg.Escalation.EnforceTransitions)
	assert.Zero(t, cfg.Cache.HistoryTTL())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoadRejectsDefaultSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	for _, secret := range []string{"", DevJWTSecret, "  dev-secret "} {
		t.Setenv("AUTH_JWT_SECRET", secret)
		_, err := Load()
		require.Error(t, err, "secret %q", secret)
		assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	}

	t.Setenv("AUTH_JWT_SECRET", "a-real-signing-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.App.IsDevelopment())
	assert.Equal(t, "a-real-signing-key", cfg.Auth.JWTSecret)
}

func TestLoadAllowsDefaultSecretInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsDevelopment())
	assert.Equal(t, DevJWTSecret, cfg.Auth.JWTSecret)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.weather.gov", cfg.NWSBaseURL)
	assert.Contains(t, cfg.NWSUserAgent, "nws-alert-gateway")
	assert.Equal(t, 8*time.Second, cfg.NWSTimeout)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 3, cfg.BatchConcurrency)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, "nws-alert-updates", cfg.KafkaAlertsTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("NWS_BASE_URL", "http://localhost:9999")
	t.Setenv("NWS_USER_AGENT", "test-agent/0.1 (ops@example.com)")
	t.Setenv("NWS_TIMEOUT", "15s")
	t.Setenv("POLL_INTERVAL", "2m")
	t.Setenv("BATCH_SIZE", "50")
	t.Setenv("BATCH_CONCURRENCY", "5")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DATA_DIR", "/var/lib/gateway")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_ALERTS_TOPIC", "custom-alerts")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.NWSBaseURL)
	assert.Equal(t, "test-agent/0.1 (ops@example.com)", cfg.NWSUserAgent)
	assert.Equal(t, 15*time.Second, cfg.NWSTimeout)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 5, cfg.BatchConcurrency)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "/var/lib/gateway", cfg.DataDir)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "custom-alerts", cfg.KafkaAlertsTopic)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_KafkaDisabledOverride(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("NWS_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NWS_TIMEOUT")
}

func TestLoad_TimeoutOutOfRange(t *testing.T) {
	t.Setenv("NWS_TIMEOUT", "45s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NWS_TIMEOUT")
}

func TestLoad_BatchSizeOverUpstreamCap(t *testing.T) {
	t.Setenv("BATCH_SIZE", "250")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_PollIntervalTooShort(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	t.Setenv("BATCH_CONCURRENCY", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_CONCURRENCY")
}

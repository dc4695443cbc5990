package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxZoneBatchSize is the upstream cap: the NWS zones endpoint accepts at
// most 100 ids per request. The resolver splits larger sets.
const MaxZoneBatchSize = 100

// Config holds all gateway settings, populated from environment variables.
// Nothing is hot-reloaded.
type Config struct {
	NWSBaseURL   string
	NWSUserAgent string
	NWSTimeout   time.Duration

	PollInterval     time.Duration
	BatchSize        int
	BatchConcurrency int

	HTTPAddr string
	DataDir  string

	// Redis-backed geometry cache, used instead of the disk file when set.
	RedisAddr     string
	RedisPassword string

	// Kafka alert-update publishing configuration.
	KafkaBrokers     []string
	KafkaAlertsTopic string
	KafkaEnabled     bool

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first when
// present (development convenience; a missing file is not an error).
func Load() (*Config, error) {
	_ = godotenv.Load()

	nwsTimeout, err := parseDuration("NWS_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseInt("BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	batchConcurrency, err := parseInt("BATCH_CONCURRENCY", 3)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		NWSBaseURL:   envOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent: envOrDefault("NWS_USER_AGENT", "nws-alert-gateway/1.0 (github.com/couchcryptid/nws-alert-gateway)"),
		NWSTimeout:   nwsTimeout,

		PollInterval:     pollInterval,
		BatchSize:        batchSize,
		BatchConcurrency: batchConcurrency,

		HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),
		DataDir:  envOrDefault("DATA_DIR", "data"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers:     kafkaBrokers,
		KafkaAlertsTopic: envOrDefault("KAFKA_ALERTS_TOPIC", "nws-alert-updates"),
		KafkaEnabled:     kafkaEnabled,

		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.NWSBaseURL == "" {
		return errors.New("NWS_BASE_URL is required")
	}
	if c.NWSUserAgent == "" {
		return errors.New("NWS_USER_AGENT is required: the NWS API rejects anonymous clients")
	}
	if c.NWSTimeout < time.Second || c.NWSTimeout > 30*time.Second {
		return errors.New("NWS_TIMEOUT must be between 1s and 30s")
	}
	if c.PollInterval < 10*time.Second {
		return errors.New("POLL_INTERVAL must be at least 10s")
	}
	if c.BatchSize < 1 || c.BatchSize > MaxZoneBatchSize {
		return fmt.Errorf("BATCH_SIZE must be between 1 and %d", MaxZoneBatchSize)
	}
	if c.BatchConcurrency < 1 || c.BatchConcurrency > 10 {
		return errors.New("BATCH_CONCURRENCY must be between 1 and 10")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "this-is-a-very-long-jwt-secret-for-testing-32+"

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
	t.Setenv("AUTH_JWT_SECRET", testSecret)
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
server:
  port: 8081
grpc:
  port: 9091
database:
  dsn: "postgres://u:p@localhost:5432/testdb"
auth:
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"
broker:
  driver: "redis"
redis:
  addr: "cache:6379"
  block_timeout: "1s"
retry:
  max_attempts: 5
  backoff: "250ms"
log:
  level: "debug"
  format: "text"
`

func TestLoad_ValidYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeYAML(t, validYAML))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 9091, cfg.GRPC.Port)
	assert.Equal(t, DriverRedis, cfg.Broker.Driver)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Second, cfg.Redis.BlockTimeout)
	assert.Equal(t, time.Minute, cfg.Redis.ClaimIdle)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Backoff)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvDefaults(t *testing.T) {
	validEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverKafka, cfg.Broker.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, 3, cfg.Retry.Policy().MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.Policy().Backoff)
	assert.Equal(t, "ADMIN", cfg.Auth.AdminRole)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeYAML(t, validYAML))
	t.Setenv("RETRY_MAX_ATTEMPTS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server: ServerConfig{Port: 8080},
			GRPC:   GRPCConfig{Enabled: true, Port: 9090},
			Auth:   AuthConfig{JWTSecret: testSecret},
			Broker: BrokerConfig{Driver: DriverMemory},
			Kafka:  KafkaConfig{Brokers: "k1:9092, k2:9092", Partitions: 1, ReplicationFactor: 1},
			Redis:  RedisConfig{Addr: "localhost:6379", BlockTimeout: time.Second, ClaimIdle: time.Minute},
			Retry:  RetryConfig{MaxAttempts: 3, Backoff: 2 * time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid memory", func(*Config) {}, ""},
		{"valid kafka", func(c *Config) { c.Broker.Driver = " Kafka " }, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max attempts"},
		{"negative backoff", func(c *Config) { c.Retry.Backoff = -time.Second }, "backoff"},
		{"unknown driver", func(c *Config) { c.Broker.Driver = "rabbit" }, "broker.driver"},
		{"kafka without brokers", func(c *Config) { c.Broker.Driver = DriverKafka; c.Kafka.Brokers = " , " }, "kafka.brokers"},
		{"redis without block", func(c *Config) { c.Broker.Driver = DriverRedis; c.Redis.BlockTimeout = 0 }, "block_timeout"},
		{"redis without claim idle", func(c *Config) { c.Broker.Driver = DriverRedis; c.Redis.ClaimIdle = 0 }, "claim_idle"},
		{"port clash", func(c *Config) { c.GRPC.Port = 8080 }, "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestKafkaConfig_BrokerList(t *testing.T) {
	t.Parallel()

	cfg := KafkaConfig{Brokers: "a:9092, ,b:9092 "}
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.BrokerList())
}

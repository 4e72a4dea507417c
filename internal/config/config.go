package config

import (
	"strings"
	"time"

	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

// Broker drivers.
const (
	DriverKafka  = "kafka"
	DriverRedis  = "redis"
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Broker   BrokerConfig   `yaml:"broker"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Retry    RetryConfig    `yaml:"retry"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GRPCConfig holds the admin gRPC server settings.
type GRPCConfig struct {
	Enabled bool `yaml:"enabled" env:"GRPC_ENABLED" env-default:"true"`
	Port    int  `yaml:"port"    env:"GRPC_PORT"    env-default:"9090"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"false"`
}

// AuthConfig holds JWT validation settings. Tokens are issued elsewhere.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"sistemapedidos"`
	AdminRole string `yaml:"admin_role" env:"AUTH_ADMIN_ROLE" env-default:"ADMIN"`
}

// BrokerConfig selects the message transport.
type BrokerConfig struct {
	Driver   string `yaml:"driver"    env:"BROKER_DRIVER"    env-default:"kafka"`
	ClientID string `yaml:"client_id" env:"BROKER_CLIENT_ID" env-default:"orderevents"`
}

// KafkaConfig holds segmentio/kafka-go settings.
type KafkaConfig struct {
	Brokers           string        `yaml:"brokers"            env:"KAFKA_BROKERS"            env-default:"localhost:9092"`
	MinBytes          int           `yaml:"min_bytes"          env:"KAFKA_MIN_BYTES"          env-default:"1"`
	MaxBytes          int           `yaml:"max_bytes"          env:"KAFKA_MAX_BYTES"          env-default:"10485760"`
	MaxWait           time.Duration `yaml:"max_wait"           env:"KAFKA_MAX_WAIT"           env-default:"500ms"`
	WriteTimeout      time.Duration `yaml:"write_timeout"      env:"KAFKA_WRITE_TIMEOUT"      env-default:"10s"`
	AutoCreateTopics  bool          `yaml:"auto_create_topics" env:"KAFKA_AUTO_CREATE_TOPICS" env-default:"true"`
	Partitions        int           `yaml:"partitions"         env:"KAFKA_PARTITIONS"         env-default:"1"`
	ReplicationFactor int           `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" env-default:"1"`
}

// BrokerList splits the comma-separated broker addresses.
func (c KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// RedisConfig holds go-redis settings for the Streams transport.
type RedisConfig struct {
	Addr         string        `yaml:"addr"          env:"REDIS_ADDR"          env-default:"localhost:6379"`
	Password     string        `yaml:"password"      env:"REDIS_PASSWORD"`
	DB           int           `yaml:"db"            env:"REDIS_DB"            env-default:"0"`
	BlockTimeout time.Duration `yaml:"block_timeout" env:"REDIS_BLOCK_TIMEOUT" env-default:"2s"`
	// ClaimIdle is how long an entry may sit unacknowledged with another
	// consumer before this one takes it over.
	ClaimIdle time.Duration `yaml:"claim_idle" env:"REDIS_CLAIM_IDLE" env-default:"1m"`
}

// RetryConfig bounds redelivery of a failing order message.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS" env-default:"3"`
	Backoff     time.Duration `yaml:"backoff"      env:"RETRY_BACKOFF"      env-default:"2s"`
}

// Policy converts the config into the policy handed to the consumers.
func (c RetryConfig) Policy() messaging.RetryPolicy {
	return messaging.RetryPolicy{MaxAttempts: c.MaxAttempts, Backoff: c.Backoff}
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Retry.Policy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}

	c.Broker.Driver = strings.ToLower(strings.TrimSpace(c.Broker.Driver))
	switch c.Broker.Driver {
	case DriverKafka:
		if len(c.Kafka.BrokerList()) == 0 {
			return fmt.Errorf("kafka.brokers must list at least one address")
		}
		if c.Kafka.Partitions < 1 || c.Kafka.ReplicationFactor < 1 {
			return fmt.Errorf("kafka.partitions and kafka.replication_factor must be >= 1")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
		if c.Redis.BlockTimeout <= 0 {
			return fmt.Errorf("redis.block_timeout must be > 0 (got %s)", c.Redis.BlockTimeout)
		}
		if c.Redis.ClaimIdle <= 0 {
			return fmt.Errorf("redis.claim_idle must be > 0 (got %s)", c.Redis.ClaimIdle)
		}
	case DriverMemory, DriverNone:
	default:
		return fmt.Errorf("broker.driver must be one of kafka, redis, memory, none (got %q)", c.Broker.Driver)
	}

	if c.GRPC.Enabled && c.GRPC.Port == c.Server.Port {
		return fmt.Errorf("grpc.port and server.port must differ (both %d)", c.Server.Port)
	}

	return nil
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/domain"
)

// TopicConfigs returns the topic definitions for topics.
func TopicConfigs(cfg config.KafkaConfig, topics []domain.Topic) []kafkago.TopicConfig {
	out := make([]kafkago.TopicConfig, len(topics))
	for i, t := range topics {
		out[i] = kafkago.TopicConfig{
			Topic:             t.String(),
			NumPartitions:     cfg.Partitions,
			ReplicationFactor: cfg.ReplicationFactor,
		}
	}
	return out
}

// EnsureTopics creates the missing topics through the cluster controller.
func EnsureTopics(ctx context.Context, cfg config.KafkaConfig, topics []domain.Topic) error {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	conn, err := kafkago.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("kafka dial %s: %w", brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller: %w", err)
	}

	ctrlConn, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("kafka dial controller: %w", err)
	}
	defer ctrlConn.Close()

	if err := ctrlConn.CreateTopics(TopicConfigs(cfg, topics)...); err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("kafka create topics: %w", err)
	}
	return nil
}

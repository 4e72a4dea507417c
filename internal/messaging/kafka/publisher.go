package kafka

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

// Publisher writes messages to the topic named by each message.
type Publisher struct {
	writer *kafkago.Writer
}

var _ messaging.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher. The writer connects lazily.
func NewPublisher(cfg config.KafkaConfig, clientID string) *Publisher {
	return &Publisher{writer: newWriter(cfg, clientID)}
}

func newWriter(cfg config.KafkaConfig, clientID string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.BrokerList()...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
		Transport:              &kafkago.Transport{ClientID: clientID},
	}
}

// Publish writes msg synchronously and returns the broker's verdict.
func (p *Publisher) Publish(ctx context.Context, msg messaging.Message) error {
	if err := p.writer.WriteMessages(ctx, toKafka(msg)); err != nil {
		return fmt.Errorf("kafka write %s: %w", msg.Topic, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

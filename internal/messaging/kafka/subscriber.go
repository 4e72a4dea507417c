package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

const commitTimeout = 5 * time.Second

// Subscriber reads each subscription through its own consumer-group reader.
type Subscriber struct {
	cfg      config.KafkaConfig
	clientID string
	log      *slog.Logger
}

var _ messaging.Subscriber = (*Subscriber)(nil)

// NewSubscriber creates a Subscriber.
func NewSubscriber(log *slog.Logger, cfg config.KafkaConfig, clientID string) *Subscriber {
	return &Subscriber{
		cfg:      cfg,
		clientID: clientID,
		log:      log.With("component", "kafka_subscriber"),
	}
}

func (s *Subscriber) readerConfig(sub messaging.Subscription) kafkago.ReaderConfig {
	return kafkago.ReaderConfig{
		Brokers:  s.cfg.BrokerList(),
		GroupID:  sub.Group,
		Topic:    sub.Topic.String(),
		MinBytes: s.cfg.MinBytes,
		MaxBytes: s.cfg.MaxBytes,
		MaxWait:  s.cfg.MaxWait,
		Dialer: &kafkago.Dialer{
			ClientID:  s.clientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	}
}

// Subscribe fetches, handles and commits messages one at a time. The offset
// is committed after h returns, whatever it returned, so a message is
// redelivered only when the process stops mid-handling.
func (s *Subscriber) Subscribe(ctx context.Context, sub messaging.Subscription, h messaging.HandlerFunc) error {
	reader := kafkago.NewReader(s.readerConfig(sub))
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("close reader", slog.String("topic", sub.Topic.String()), slog.String("error", err.Error()))
		}
	}()

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka fetch %s: %w", sub.Topic, err)
		}

		msg := fromKafka(km)
		if err := h(ctx, msg); err != nil {
			s.log.ErrorContext(ctx, "handler returned error",
				slog.String("topic", sub.Topic.String()),
				slog.String("message_id", msg.ID),
				slog.Int64("offset", km.Offset),
				slog.String("error", err.Error()),
			)
		}

		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		err = reader.CommitMessages(commitCtx, km)
		cancel()
		if err != nil {
			return fmt.Errorf("kafka commit %s@%d: %w", sub.Topic, km.Offset, err)
		}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nsridhar76/go-orderevents/internal/config"
	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
	"github.com/nsridhar76/go-orderevents/internal/messaging/kafka"
	"github.com/nsridhar76/go-orderevents/internal/messaging/memory"
	"github.com/nsridhar76/go-orderevents/internal/messaging/noop"
	"github.com/nsridhar76/go-orderevents/internal/messaging/redisstream"
)

// Transport is the broker selected by broker.driver. Subscriber is nil when
// the driver only publishes.
type Transport struct {
	Publisher  messaging.Publisher
	Subscriber messaging.Subscriber
	closers    []io.Closer
}

// Close releases the broker clients.
func (t *Transport) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		errs = append(errs, t.closers[i].Close())
	}
	return errors.Join(errs...)
}

func allTopics() []domain.Topic {
	return append(domain.OrderTopics(), domain.TopicOrderDeadLetter)
}

// NewTransport connects the configured broker.
func NewTransport(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Transport, error) {
	switch cfg.Broker.Driver {
	case config.DriverKafka:
		if cfg.Kafka.AutoCreateTopics {
			if err := kafka.EnsureTopics(ctx, cfg.Kafka, allTopics()); err != nil {
				return nil, fmt.Errorf("ensure kafka topics: %w", err)
			}
		}
		pub := kafka.NewPublisher(cfg.Kafka, cfg.Broker.ClientID)
		return &Transport{
			Publisher:  pub,
			Subscriber: kafka.NewSubscriber(log, cfg.Kafka, cfg.Broker.ClientID),
			closers:    []io.Closer{pub},
		}, nil

	case config.DriverRedis:
		client := redisstream.NewClient(cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		return &Transport{
			Publisher:  redisstream.NewPublisher(client),
			Subscriber: redisstream.NewSubscriber(log, client, cfg.Redis, cfg.Broker.ClientID),
			closers:    []io.Closer{client},
		}, nil

	case config.DriverMemory:
		b := memory.New(memory.WithLogger(log))
		return &Transport{Publisher: b, Subscriber: b, closers: []io.Closer{b}}, nil

	case config.DriverNone:
		return &Transport{Publisher: noop.Publisher{}}, nil

	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}

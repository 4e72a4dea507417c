package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

// EventSaver persists audit events.
type EventSaver interface {
	SaveEvent(ctx context.Context, event domain.OrderEvent) (domain.OrderEvent, error)
}

// Recoverer escalates a delivery whose retry budget is exhausted.
type Recoverer interface {
	Recover(ctx context.Context, cause error, msg Message, attempts int) error
}

// Consumer handles deliveries of one order topic. Each attempt runs the
// optional processor and then records a success event; a delivery that fails
// every attempt is handed to the Recoverer.
type Consumer struct {
	topic     domain.Topic
	retrier   *Retrier
	store     EventSaver
	recoverer Recoverer
	process   HandlerFunc
	now       func() time.Time
	log       *slog.Logger
}

// ConsumerOption customizes a Consumer.
type ConsumerOption func(*Consumer)

// WithProcessor runs fn before the success event is recorded. An error from
// fn fails the attempt.
func WithProcessor(fn HandlerFunc) ConsumerOption {
	return func(c *Consumer) { c.process = fn }
}

// WithClock sets the clock used to date audit events.
func WithClock(now func() time.Time) ConsumerOption {
	return func(c *Consumer) { c.now = now }
}

// NewConsumer creates the consumer for an order topic.
func NewConsumer(
	log *slog.Logger,
	topic domain.Topic,
	retrier *Retrier,
	store EventSaver,
	recoverer Recoverer,
	opts ...ConsumerOption,
) (*Consumer, error) {
	if !topic.Consumable() {
		return nil, fmt.Errorf("consumer for %q: %w", topic, ErrUnknownTopic)
	}
	c := &Consumer{
		topic:     topic,
		retrier:   retrier,
		store:     store,
		recoverer: recoverer,
		now:       time.Now,
		log:       log.With("component", "consumer", "topic", topic.String()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Topic returns the topic this consumer handles.
func (c *Consumer) Topic() domain.Topic { return c.topic }

// Handle processes one delivery. It returns nil once the delivery has either
// succeeded or been escalated, so the transport can acknowledge it.
func (c *Consumer) Handle(ctx context.Context, msg Message) error {
	out := c.retrier.Do(ctx, msg, c.attempt)
	if out.State == StateSuccess {
		c.log.InfoContext(ctx, "order event recorded",
			slog.String("message_id", msg.ID),
			slog.Int("attempts", out.Attempts),
		)
		return nil
	}

	c.log.ErrorContext(ctx, "delivery failed permanently, escalating to dead letter",
		slog.String("message_id", msg.ID),
		slog.Int("attempts", out.Attempts),
		slog.String("error", out.Err.Error()),
	)
	if err := c.recoverer.Recover(context.WithoutCancel(ctx), out.Err, msg, out.Attempts); err != nil {
		c.log.ErrorContext(ctx, "recovery incomplete",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (c *Consumer) attempt(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Payload) == "" {
		return ErrEmptyPayload
	}
	if c.process != nil {
		if err := c.process(ctx, msg); err != nil {
			return err
		}
	}

	event := domain.NewOrderEvent(c.topic, msg.Payload, c.now())
	if _, err := c.store.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("save %s event: %w", c.topic, err)
	}
	return nil
}

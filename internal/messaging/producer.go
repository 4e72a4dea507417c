package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

// Producer publishes order pipeline messages through a broker transport.
// It never retries; a transport failure is returned to the caller.
type Producer struct {
	transport Publisher
	log       *slog.Logger
	newID     func() string
	now       func() time.Time
}

// NewProducer creates a Producer on top of transport.
func NewProducer(log *slog.Logger, transport Publisher) *Producer {
	return &Producer{
		transport: transport,
		log:       log.With("component", "producer"),
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

// Publish sends payload to topic.
func (p *Producer) Publish(ctx context.Context, topic domain.Topic, payload string) error {
	return p.PublishMessage(ctx, Message{Topic: topic, Payload: payload})
}

// PublishMessage sends msg, filling in its id, key, timestamp and message-id
// header when they are missing.
func (p *Producer) PublishMessage(ctx context.Context, msg Message) error {
	if !msg.Topic.Publishable() {
		return fmt.Errorf("publish to %q: %w", msg.Topic, ErrUnknownTopic)
	}

	if msg.ID == "" {
		msg.ID = p.newID()
	}
	if msg.Key == "" {
		msg.Key = string(msg.Topic)
	}
	if msg.PublishedAt.IsZero() {
		msg.PublishedAt = p.now().UTC()
	}
	headers := make(map[string]string, len(msg.Headers)+1)
	maps.Copy(headers, msg.Headers)
	headers[HeaderMessageID] = msg.ID
	msg.Headers = headers

	if err := p.transport.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s message %s: %w", msg.Topic, msg.ID, err)
	}

	p.log.DebugContext(ctx, "message published",
		slog.String("topic", msg.Topic.String()),
		slog.String("message_id", msg.ID),
	)
	return nil
}

package messaging

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

// DeadLetterConsumer is the terminal sink of the pipeline. Every delivery is
// recorded once; nothing is retried or escalated.
type DeadLetterConsumer struct {
	store EventSaver
	now   func() time.Time
	log   *slog.Logger
}

// NewDeadLetterConsumer creates a DeadLetterConsumer.
func NewDeadLetterConsumer(log *slog.Logger, store EventSaver) *DeadLetterConsumer {
	return &DeadLetterConsumer{
		store: store,
		now:   time.Now,
		log:   log.With("component", "dead_letter_consumer"),
	}
}

// Handle records msg. A persistence failure is logged and dropped. The save
// runs to completion even if ctx is cancelled, since the transport
// acknowledges the message once Handle returns.
func (c *DeadLetterConsumer) Handle(ctx context.Context, msg Message) error {
	ctx = context.WithoutCancel(ctx)

	description := strings.TrimSpace(msg.Payload)
	if description == "" {
		description = "empty dead-letter message " + msg.ID
	}

	event := domain.NewOrderEvent(domain.TopicOrderDeadLetter, description, c.now())
	saved, err := c.store.SaveEvent(ctx, event)
	if err != nil {
		c.log.ErrorContext(ctx, "dead-letter event lost",
			slog.String("message_id", msg.ID),
			slog.String("original_topic", msg.Header(HeaderOriginalTopic)),
			slog.String("payload", msg.Payload),
			slog.String("error", err.Error()),
		)
		return nil
	}

	c.log.WarnContext(ctx, "dead-letter message recorded",
		slog.Int64("event_id", saved.ID),
		slog.String("message_id", msg.ID),
		slog.String("original_topic", msg.Header(HeaderOriginalTopic)),
	)
	return nil
}

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

// deadLetterPublisher is satisfied by *Producer.
type deadLetterPublisher interface {
	PublishMessage(ctx context.Context, msg Message) error
}

// DeadLetterRouter republishes exhausted deliveries to the dead-letter topic
// and records a terminal-failure audit event.
type DeadLetterRouter struct {
	producer deadLetterPublisher
	store    EventSaver
	now      func() time.Time
	log      *slog.Logger
}

// NewDeadLetterRouter creates a DeadLetterRouter.
func NewDeadLetterRouter(log *slog.Logger, producer deadLetterPublisher, store EventSaver) *DeadLetterRouter {
	return &DeadLetterRouter{
		producer: producer,
		store:    store,
		now:      time.Now,
		log:      log.With("component", "dead_letter_router"),
	}
}

// DeadLetterPayload is the text published to the dead-letter topic for msg.
func DeadLetterPayload(msg Message) string {
	return fmt.Sprintf("failed to process %s message: %s", msg.Topic, msg.Payload)
}

// Recover publishes the dead-letter copy of msg and records the failure. The
// two steps are independent: a failure in one does not skip the other.
func (r *DeadLetterRouter) Recover(ctx context.Context, cause error, msg Message, attempts int) error {
	if cause == nil {
		cause = errors.New("unknown error")
	}

	var errs []error

	deadLetter := Message{
		Topic:   domain.TopicOrderDeadLetter,
		Key:     msg.Key,
		Payload: DeadLetterPayload(msg),
		Headers: map[string]string{
			HeaderOriginalTopic: msg.Topic.String(),
			HeaderOriginalID:    msg.ID,
			HeaderFailureReason: cause.Error(),
		},
	}
	if err := r.producer.PublishMessage(ctx, deadLetter); err != nil {
		r.log.ErrorContext(ctx, "dead letter publish failed",
			slog.String("topic", msg.Topic.String()),
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("publish dead letter: %w", err))
	}

	description := fmt.Sprintf("%s message %s failed after %d attempts: %v; payload: %s",
		msg.Topic, msg.ID, attempts, cause, msg.Payload)
	failure := domain.NewOrderEvent(domain.TopicOrderFailed, description, r.now())
	if _, err := r.store.SaveEvent(ctx, failure); err != nil {
		r.log.ErrorContext(ctx, "failure audit not recorded",
			slog.String("topic", msg.Topic.String()),
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("save failure event: %w", err))
	}

	return errors.Join(errs...)
}

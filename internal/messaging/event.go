// Package messaging defines the order pipeline: messages, the producer, the
// retrying consumers and the dead-letter path.
package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

// Header keys carried alongside a message payload.
const (
	HeaderMessageID     = "message-id"
	HeaderOriginalTopic = "original-topic"
	HeaderOriginalID    = "original-message-id"
	HeaderFailureReason = "failure-reason"
)

var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrEmptyPayload = errors.New("empty payload")
	ErrClosed       = errors.New("transport closed")
)

// Message is the transient wire unit. Only its effect on the event store is
// durable.
type Message struct {
	ID          string            `json:"id"`
	Topic       domain.Topic      `json:"topic"`
	Key         string            `json:"key,omitempty"`
	Payload     string            `json:"payload"`
	Headers     map[string]string `json:"headers,omitempty"`
	PublishedAt time.Time         `json:"published_at"`

	// Attempt is set by the Retrier on each invocation, starting at 1.
	Attempt int `json:"-"`
}

// Header returns the header value for key, or "".
func (m Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// HandlerFunc processes one delivery.
type HandlerFunc func(ctx context.Context, msg Message) error

// Publisher is a broker transport able to enqueue a message.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscription names a topic and the consumer group reading it.
type Subscription struct {
	Topic domain.Topic
	Group string
}

// Subscriber is a broker transport delivering messages of one subscription to
// a handler. Subscribe blocks until ctx is cancelled or the transport fails.
type Subscriber interface {
	Subscribe(ctx context.Context, sub Subscription, h HandlerFunc) error
}

// GroupFor returns the consumer group used for topic, e.g.
// "order-created" -> "order_created_group".
func GroupFor(topic domain.Topic) string {
	return strings.ReplaceAll(string(topic), "-", "_") + "_group"
}

// SubscriptionFor returns the default subscription for topic.
func SubscriptionFor(topic domain.Topic) Subscription {
	return Subscription{Topic: topic, Group: GroupFor(topic)}
}

// Package memory implements an in-process broker with one ordered queue per
// topic. It backs the "memory" broker driver and the pipeline tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

// DefaultQueueSize is the per-topic buffer used when none is configured.
const DefaultQueueSize = 1024

var (
	ErrBufferFull        = errors.New("topic buffer full")
	ErrAlreadySubscribed = errors.New("topic already has a subscriber")
)

// Broker is safe for concurrent use. Each topic delivers to at most one
// subscriber at a time, in publish order.
type Broker struct {
	mu         sync.Mutex
	queues     map[domain.Topic]chan messaging.Message
	subscribed map[domain.Topic]bool
	size       int
	closed     bool
	done       chan struct{}
	log        *slog.Logger
}

// Option customizes a Broker.
type Option func(*Broker)

// WithQueueSize sets the per-topic buffer size.
func WithQueueSize(n int) Option {
	return func(b *Broker) {
		if n > 0 {
			b.size = n
		}
	}
}

// WithLogger sets the logger handler errors are reported to.
func WithLogger(log *slog.Logger) Option {
	return func(b *Broker) {
		if log != nil {
			b.log = log.With("component", "memory_broker")
		}
	}
}

// New creates an empty Broker.
func New(opts ...Option) *Broker {
	b := &Broker{
		queues:     make(map[domain.Topic]chan messaging.Message),
		subscribed: make(map[domain.Topic]bool),
		size:       DefaultQueueSize,
		done:       make(chan struct{}),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// queue returns the channel for topic. Callers hold b.mu.
func (b *Broker) queue(topic domain.Topic) chan messaging.Message {
	q, ok := b.queues[topic]
	if !ok {
		q = make(chan messaging.Message, b.size)
		b.queues[topic] = q
	}
	return q
}

// Publish enqueues msg without blocking.
func (b *Broker) Publish(ctx context.Context, msg messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return messaging.ErrClosed
	}
	q := b.queue(msg.Topic)
	b.mu.Unlock()

	select {
	case q <- msg:
		return nil
	default:
		return fmt.Errorf("topic %s: %w", msg.Topic, ErrBufferFull)
	}
}

// Subscribe delivers messages of sub.Topic to h until ctx is cancelled or the
// broker is closed. Handler errors do not cause redelivery.
func (b *Broker) Subscribe(ctx context.Context, sub messaging.Subscription, h messaging.HandlerFunc) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return messaging.ErrClosed
	}
	if b.subscribed[sub.Topic] {
		b.mu.Unlock()
		return fmt.Errorf("topic %s: %w", sub.Topic, ErrAlreadySubscribed)
	}
	b.subscribed[sub.Topic] = true
	q := b.queue(sub.Topic)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subscribed, sub.Topic)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.done:
			return nil
		case msg := <-q:
			if err := h(ctx, msg); err != nil {
				b.log.ErrorContext(ctx, "handler returned error",
					slog.String("topic", sub.Topic.String()),
					slog.String("message_id", msg.ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Pending returns the number of undelivered messages on topic.
func (b *Broker) Pending(topic domain.Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[topic]; ok {
		return len(q)
	}
	return 0
}

// Close stops all subscribers and rejects further publishes.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}

package memory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

func TestBroker_DeliversInOrder(t *testing.T) {
	b := New()
	defer b.Close()

	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, b.Publish(ctx, messaging.Message{Topic: domain.TopicOrderCreated, Payload: p}))
	}
	assert.Equal(t, 3, b.Pending(domain.TopicOrderCreated))

	got := make(chan string, 3)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = b.Subscribe(subCtx, messaging.SubscriptionFor(domain.TopicOrderCreated),
			func(_ context.Context, msg messaging.Message) error {
				got <- msg.Payload
				return nil
			})
	}()

	for _, want := range []string{"a", "b", "c"} {
		select {
		case p := <-got:
			assert.Equal(t, want, p)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestBroker_BufferFull(t *testing.T) {
	b := New(WithQueueSize(1))
	defer b.Close()

	ctx := context.Background()
	msg := messaging.Message{Topic: domain.TopicOrderCancelled, Payload: "x"}
	require.NoError(t, b.Publish(ctx, msg))
	assert.ErrorIs(t, b.Publish(ctx, msg), ErrBufferFull)
}

func TestBroker_SingleSubscriberPerTopic(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := messaging.SubscriptionFor(domain.TopicOrderModified)
	noop := func(context.Context, messaging.Message) error { return nil }

	go func() { _ = b.Subscribe(ctx, sub, noop) }()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.subscribed[sub.Topic]
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, b.Subscribe(ctx, sub, noop), ErrAlreadySubscribed)
}

func TestBroker_Close(t *testing.T) {
	b := New()

	done := make(chan error, 1)
	go func() {
		done <- b.Subscribe(context.Background(), messaging.SubscriptionFor(domain.TopicOrderCreated),
			func(context.Context, messaging.Message) error { return nil })
	}()

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	select {
	case err := <-done:
		assert.True(t, err == nil || err == messaging.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop")
	}

	assert.ErrorIs(t, b.Publish(context.Background(), messaging.Message{Topic: domain.TopicOrderCreated}), messaging.ErrClosed)
}

func TestBroker_PublishCancelledContext(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Publish(ctx, messaging.Message{Topic: domain.TopicOrderCreated}), context.Canceled)
}

// syncBuffer guards a bytes.Buffer shared with the subscriber goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBroker_HandlerErrorLogged(t *testing.T) {
	var out syncBuffer
	b := New(WithLogger(slog.New(slog.NewTextHandler(&out, nil))))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Publish(ctx, messaging.Message{ID: "m1", Topic: domain.TopicOrderCreated, Payload: "a"}))

	go func() {
		_ = b.Subscribe(ctx, messaging.SubscriptionFor(domain.TopicOrderCreated),
			func(context.Context, messaging.Message) error { return errors.New("boom") })
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "handler returned error")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "message_id=m1")
	assert.Contains(t, out.String(), "error=boom")
}

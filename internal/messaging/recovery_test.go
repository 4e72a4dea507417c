package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

func newTestRouter(transport *transportFake, store *storeFake) *DeadLetterRouter {
	r := NewDeadLetterRouter(testLogger(), NewProducer(testLogger(), transport), store)
	r.now = fixedNow
	return r
}

var failedMsg = Message{
	ID:      "m1",
	Topic:   domain.TopicOrderCreated,
	Key:     "order-created",
	Payload: "Order 42 for user 7 created",
}

func TestDeadLetterRouter_Recover(t *testing.T) {
	transport := &transportFake{}
	store := &storeFake{}
	r := newTestRouter(transport, store)

	require.NoError(t, r.Recover(context.Background(), errors.New("boom"), failedMsg, 3))

	sent := transport.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, domain.TopicOrderDeadLetter, sent[0].Topic)
	assert.Contains(t, sent[0].Payload, failedMsg.Payload)
	assert.NotEmpty(t, sent[0].ID)
	assert.Equal(t, sent[0].ID, sent[0].Header(HeaderMessageID))

	require.Len(t, store.events, 1)
	audit := store.events[0]
	assert.Equal(t, domain.TopicOrderFailed, audit.Topic)
	assert.Equal(t, "order-created message m1 failed after 3 attempts: boom; payload: Order 42 for user 7 created", audit.Description)
	assert.Equal(t, domain.CalendarDate(fixedNow()), audit.OccurredOn)
}

func TestDeadLetterRouter_PublishFailureStillAudits(t *testing.T) {
	transport := &transportFake{err: errors.New("broker down")}
	store := &storeFake{}
	r := newTestRouter(transport, store)

	err := r.Recover(context.Background(), errors.New("boom"), failedMsg, 3)
	require.Error(t, err)
	assert.ErrorContains(t, err, "broker down")

	assert.Len(t, store.byTopic(domain.TopicOrderFailed), 1)
}

func TestDeadLetterRouter_AuditFailureStillPublishes(t *testing.T) {
	transport := &transportFake{}
	store := &storeFake{fail: func(domain.OrderEvent) error { return errors.New("db down") }}
	r := newTestRouter(transport, store)

	err := r.Recover(context.Background(), errors.New("boom"), failedMsg, 3)
	require.Error(t, err)
	assert.ErrorContains(t, err, "db down")

	assert.Len(t, transport.messages(), 1)
}

func TestDeadLetterRouter_NilCause(t *testing.T) {
	transport := &transportFake{}
	r := newTestRouter(transport, &storeFake{})

	require.NoError(t, r.Recover(context.Background(), nil, failedMsg, 1))
	assert.Equal(t, "unknown error", transport.messages()[0].Header(HeaderFailureReason))
}

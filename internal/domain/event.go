package domain

import (
	"strings"
	"time"
)

// Topic identifies a broker channel or, for audit-only values, the kind of
// outcome recorded in the event store.
type Topic string

const (
	TopicOrderCreated    Topic = "order-created"
	TopicOrderProcessed  Topic = "order-processed"
	TopicOrderModified   Topic = "order-modified"
	TopicOrderCancelled  Topic = "order-cancelled"
	TopicOrderDeadLetter Topic = "order-dead-letter"

	// TopicOrderFailed is never published. It marks the audit row written when
	// a delivery exhausts its retry budget.
	TopicOrderFailed Topic = "order-failed"
)

// OrderTopics returns the topics that carry order transitions and have a
// retrying consumer.
func OrderTopics() []Topic {
	return []Topic{
		TopicOrderCreated,
		TopicOrderProcessed,
		TopicOrderModified,
		TopicOrderCancelled,
	}
}

func (t Topic) String() string { return string(t) }

// Valid reports whether t belongs to the fixed vocabulary.
func (t Topic) Valid() bool {
	switch t {
	case TopicOrderCreated, TopicOrderProcessed, TopicOrderModified, TopicOrderCancelled,
		TopicOrderDeadLetter, TopicOrderFailed:
		return true
	}
	return false
}

// Publishable reports whether messages may be sent to t on the broker.
func (t Topic) Publishable() bool {
	return t.Valid() && t != TopicOrderFailed
}

// Consumable reports whether t has a retrying order consumer.
func (t Topic) Consumable() bool {
	switch t {
	case TopicOrderCreated, TopicOrderProcessed, TopicOrderModified, TopicOrderCancelled:
		return true
	}
	return false
}

// OrderEvent is an append-only audit record of one pipeline outcome.
type OrderEvent struct {
	ID          int64
	Topic       Topic
	Description string
	OccurredOn  time.Time
}

// NewOrderEvent builds an unsaved event dated on the calendar day of now (UTC).
func NewOrderEvent(topic Topic, description string, now time.Time) OrderEvent {
	return OrderEvent{
		Topic:       topic,
		Description: strings.TrimSpace(description),
		OccurredOn:  CalendarDate(now),
	}
}

// CalendarDate truncates t to midnight UTC of its UTC day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the invariants every stored event must satisfy.
func (e OrderEvent) Validate() error {
	var errs []FieldError
	if e.Topic == "" {
		errs = append(errs, FieldError{Field: "topic", Message: "required"})
	} else if !e.Topic.Valid() {
		errs = append(errs, FieldError{Field: "topic", Message: "unknown topic " + string(e.Topic)})
	}
	if strings.TrimSpace(e.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}
	if e.OccurredOn.IsZero() {
		errs = append(errs, FieldError{Field: "occurred_on", Message: "required"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

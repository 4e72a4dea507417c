package noop

import (
	"context"

	"github.com/nsridhar76/go-orderevents/internal/messaging"
)

// Publisher is a no-op messaging.Publisher used when no broker is configured.
// Orders are still persisted; their notifications are dropped.
type Publisher struct{}

var _ messaging.Publisher = Publisher{}

func (Publisher) Publish(_ context.Context, _ messaging.Message) error { return nil }

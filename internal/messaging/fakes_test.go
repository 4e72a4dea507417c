package messaging

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedNow is a clock stuck at 2026-05-01 14:00 UTC.
func fixedNow() time.Time {
	return time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)
}

type storeFake struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	fail   func(domain.OrderEvent) error
}

func (s *storeFake) SaveEvent(_ context.Context, e domain.OrderEvent) (domain.OrderEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		if err := s.fail(e); err != nil {
			return domain.OrderEvent{}, err
		}
	}
	e.ID = int64(len(s.events) + 1)
	s.events = append(s.events, e)
	return e, nil
}

func (s *storeFake) byTopic(topic domain.Topic) []domain.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.OrderEvent
	for _, e := range s.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

type transportFake struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (t *transportFake) Publish(_ context.Context, msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *transportFake) messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.sent...)
}

type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
}

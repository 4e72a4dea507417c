// Package eventstore is the audit trail service of the order pipeline. Events
// are saved and deleted but never updated.
package eventstore

import (
	"context"
	"fmt"
	"log/slog"

	eventrepo "github.com/nsridhar76/go-orderevents/internal/adapter/postgres/eventstore"
	"github.com/nsridhar76/go-orderevents/internal/domain"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type eventRepo interface {
	Create(ctx context.Context, event domain.OrderEvent) (domain.OrderEvent, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (domain.OrderEvent, error)
	List(ctx context.Context, f eventrepo.Filter) ([]domain.OrderEvent, error)
	Count(ctx context.Context, f eventrepo.Filter) (int, error)
}

// ListInput filters ListEvents.
type ListInput struct {
	Topic  domain.Topic
	Limit  int
	Offset int
}

// ListResult is one page of events plus the total matching the filter.
type ListResult struct {
	Events []domain.OrderEvent
	Total  int
}

// Service implements the event store operations.
type Service struct {
	repo eventRepo
	log  *slog.Logger
}

// NewService creates a Service.
func NewService(log *slog.Logger, repo eventRepo) *Service {
	return &Service{
		repo: repo,
		log:  log.With("service", "eventstore"),
	}
}

// SaveEvent persists event as a new row and returns it with its id. An event
// that already carries an id is rejected so existing rows are never touched.
func (s *Service) SaveEvent(ctx context.Context, event domain.OrderEvent) (domain.OrderEvent, error) {
	if event.ID != 0 {
		return domain.OrderEvent{}, domain.NewValidationError("id", "must be empty for a new event")
	}
	if err := event.Validate(); err != nil {
		return domain.OrderEvent{}, err
	}

	saved, err := s.repo.Create(ctx, event)
	if err != nil {
		return domain.OrderEvent{}, fmt.Errorf("save event: %w", err)
	}

	s.log.DebugContext(ctx, "event saved",
		slog.Int64("event_id", saved.ID),
		slog.String("topic", saved.Topic.String()),
	)
	return saved, nil
}

// DeleteEvent removes the event with id. It returns domain.ErrNotFound when
// there is no such event.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.NewValidationError("id", "must be positive")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.log.InfoContext(ctx, "event deleted", slog.Int64("event_id", id))
	return nil
}

// GetEvent returns the event with id, or domain.ErrNotFound.
func (s *Service) GetEvent(ctx context.Context, id int64) (domain.OrderEvent, error) {
	if id <= 0 {
		return domain.OrderEvent{}, domain.NewValidationError("id", "must be positive")
	}
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.OrderEvent{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ListEvents returns events newest first.
func (s *Service) ListEvents(ctx context.Context, in ListInput) (ListResult, error) {
	if in.Topic != "" && !in.Topic.Valid() {
		return ListResult{}, domain.NewValidationError("topic", "unknown topic "+string(in.Topic))
	}
	if in.Offset < 0 {
		return ListResult{}, domain.NewValidationError("offset", "must not be negative")
	}

	limit := in.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	f := eventrepo.Filter{Topic: in.Topic, Limit: limit, Offset: in.Offset}
	events, err := s.repo.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("list events: %w", err)
	}
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("count events: %w", err)
	}

	return ListResult{Events: events, Total: total}, nil
}

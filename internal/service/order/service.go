// Package order drives order transitions and announces each one on the
// order pipeline.
package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nsridhar76/go-orderevents/internal/domain"
)

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (domain.Order, error)
	GetByID(ctx context.Context, id int64) (domain.Order, error)
	Update(ctx context.Context, o domain.Order) (domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	CountProducts(ctx context.Context, ids []int64) (int, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, topic domain.Topic, payload string) error
}

// Input carries the user and products of a new or modified order.
type Input struct {
	UserID     int64
	ProductIDs []int64
}

// Service implements the order operations.
type Service struct {
	repo      orderRepo
	publisher eventPublisher
	log       *slog.Logger
}

// NewService creates a Service.
func NewService(log *slog.Logger, repo orderRepo, publisher eventPublisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log.With("service", "order"),
	}
}

// Create places a new order and announces it on order-created.
func (s *Service) Create(ctx context.Context, in Input) (domain.Order, error) {
	draft := domain.Order{UserID: in.UserID, ProductIDs: in.ProductIDs, Status: domain.OrderStatusCreated}
	if err := s.checkReferences(ctx, draft); err != nil {
		return domain.Order{}, err
	}

	created, err := s.repo.Create(ctx, draft)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.log.InfoContext(ctx, "order created",
		slog.Int64("order_id", created.ID),
		slog.Int64("user_id", created.UserID),
	)
	s.announce(ctx, domain.TopicOrderCreated, created, "created")
	return created, nil
}

// Get returns the order with id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// Modify replaces the user and products of an open order.
func (s *Service) Modify(ctx context.Context, id int64, in Input) (domain.Order, error) {
	current, err := s.open(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	next := current
	next.UserID = in.UserID
	next.ProductIDs = in.ProductIDs
	next.Status = domain.OrderStatusModified
	if err := s.checkReferences(ctx, next); err != nil {
		return domain.Order{}, err
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return domain.Order{}, fmt.Errorf("modify order: %w", err)
	}

	s.log.InfoContext(ctx, "order modified", slog.Int64("order_id", updated.ID))
	s.announce(ctx, domain.TopicOrderModified, updated, "modified")
	return updated, nil
}

// Process marks an open order as processed.
func (s *Service) Process(ctx context.Context, id int64) (domain.Order, error) {
	return s.transition(ctx, id, domain.OrderStatusProcessed, domain.TopicOrderProcessed, "processed")
}

// Cancel marks an open order as cancelled. Cancelled orders are kept.
func (s *Service) Cancel(ctx context.Context, id int64) (domain.Order, error) {
	return s.transition(ctx, id, domain.OrderStatusCancelled, domain.TopicOrderCancelled, "cancelled")
}

func (s *Service) transition(
	ctx context.Context,
	id int64,
	status domain.OrderStatus,
	topic domain.Topic,
	action string,
) (domain.Order, error) {
	if _, err := s.open(ctx, id); err != nil {
		return domain.Order{}, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s order: %w", action, err)
	}

	s.log.InfoContext(ctx, "order "+action, slog.Int64("order_id", updated.ID))
	s.announce(ctx, topic, updated, action)
	return updated, nil
}

// open loads order id and rejects cancelled orders.
func (s *Service) open(ctx context.Context, id int64) (domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status == domain.OrderStatusCancelled {
		return domain.Order{}, fmt.Errorf("order %d is cancelled: %w", id, domain.ErrConflict)
	}
	return o, nil
}

func (s *Service) checkReferences(ctx context.Context, o domain.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	exists, err := s.repo.UserExists(ctx, o.UserID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %d: %w", o.UserID, domain.ErrNotFound)
	}

	n, err := s.repo.CountProducts(ctx, o.ProductIDs)
	if err != nil {
		return fmt.Errorf("check products: %w", err)
	}
	if n != len(o.ProductIDs) {
		return fmt.Errorf("%d of %d products: %w", len(o.ProductIDs)-n, len(o.ProductIDs), domain.ErrNotFound)
	}
	return nil
}

// announce publishes the transition. The order change is already committed,
// so a publish failure is logged and the caller proceeds.
func (s *Service) announce(ctx context.Context, topic domain.Topic, o domain.Order, action string) {
	if err := s.publisher.Publish(ctx, topic, o.Summary(action)); err != nil {
		s.log.ErrorContext(ctx, "order event not published",
			slog.String("topic", topic.String()),
			slog.Int64("order_id", o.ID),
			slog.String("error", err.Error()),
		)
	}
}

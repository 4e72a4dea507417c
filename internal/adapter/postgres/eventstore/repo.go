// Package eventstore implements the append-only order_events repository.
package eventstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/nsridhar76/go-orderevents/internal/adapter/postgres"
	"github.com/nsridhar76/go-orderevents/internal/domain"
)

const table = "order_events"

var columns = []string{"id", "topic", "description", "occurred_on"}

// Filter narrows List and Count.
type Filter struct {
	Topic  domain.Topic
	Limit  int
	Offset int
}

type eventRow struct {
	ID          int64     `db:"id"`
	Topic       string    `db:"topic"`
	Description string    `db:"description"`
	OccurredOn  time.Time `db:"occurred_on"`
}

func (r eventRow) toDomain() domain.OrderEvent {
	return domain.OrderEvent{
		ID:          r.ID,
		Topic:       domain.Topic(r.Topic),
		Description: r.Description,
		OccurredOn:  domain.CalendarDate(r.OccurredOn),
	}
}

// Repo persists order events. It has no update operation.
type Repo struct {
	q postgres.Querier
}

// New creates a Repo on top of q.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

// Create inserts event as a new row and returns it with its generated id.
func (r *Repo) Create(ctx context.Context, event domain.OrderEvent) (domain.OrderEvent, error) {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns("topic", "description", "occurred_on").
		Values(string(event.Topic), event.Description, event.OccurredOn).
		Suffix("RETURNING id, topic, description, occurred_on").
		ToSql()
	if err != nil {
		return domain.OrderEvent{}, fmt.Errorf("build insert order_event: %w", err)
	}

	var row eventRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		return domain.OrderEvent{}, postgres.MapError(err, "order_event", 0)
	}
	return row.toDomain(), nil
}

// Delete removes the event with id. It returns domain.ErrNotFound when no row
// matched.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete order_event: %w", err)
	}

	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "order_event", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order_event %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns one event.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.OrderEvent, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.OrderEvent{}, fmt.Errorf("build select order_event: %w", err)
	}

	var row eventRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return domain.OrderEvent{}, fmt.Errorf("order_event %d: %w", id, domain.ErrNotFound)
		}
		return domain.OrderEvent{}, postgres.MapError(err, "order_event", id)
	}
	return row.toDomain(), nil
}

// List returns events newest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.OrderEvent, error) {
	b := postgres.Builder().
		Select(columns...).
		From(table).
		OrderBy("id DESC")
	if f.Topic != "" {
		b = b.Where(sq.Eq{"topic": string(f.Topic)})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list order_events: %w", err)
	}

	var rows []eventRow
	if err := pgxscan.Select(ctx, r.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list order_events: %w", err)
	}

	events := make([]domain.OrderEvent, len(rows))
	for i, row := range rows {
		events[i] = row.toDomain()
	}
	return events, nil
}

// Count returns the number of events, optionally restricted to f.Topic.
func (r *Repo) Count(ctx context.Context, f Filter) (int, error) {
	b := postgres.Builder().Select("count(*)").From(table)
	if f.Topic != "" {
		b = b.Where(sq.Eq{"topic": string(f.Topic)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count order_events: %w", err)
	}

	var n int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count order_events: %w", err)
	}
	return n, nil
}

// Package order implements the orders repository.
package order

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	postgres "github.com/nsridhar76/go-orderevents/internal/adapter/postgres"
	"github.com/nsridhar76/go-orderevents/internal/domain"
)

const table = "orders"

var columns = []string{"id", "user_id", "product_ids", "status", "created_at", "updated_at"}

const returning = "RETURNING id, user_id, product_ids, status, created_at, updated_at"

type orderRow struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	ProductIDs []int64   `db:"product_ids"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r orderRow) toDomain() domain.Order {
	return domain.Order{
		ID:         r.ID,
		UserID:     r.UserID,
		ProductIDs: r.ProductIDs,
		Status:     domain.OrderStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Repo persists orders.
type Repo struct {
	q postgres.Querier
}

// New creates a Repo on top of q.
func New(q postgres.Querier) *Repo {
	return &Repo{q: q}
}

// Create inserts o with status created.
func (r *Repo) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns("user_id", "product_ids", "status").
		Values(o.UserID, o.ProductIDs, string(domain.OrderStatusCreated)).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build insert order: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		return domain.Order{}, postgres.MapError(err, "order", 0)
	}
	return row.toDomain(), nil
}

// GetByID returns the order with id.
func (r *Repo) GetByID(ctx context.Context, id int64) (domain.Order, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build select order: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		return domain.Order{}, postgres.MapError(err, "order", id)
	}
	return row.toDomain(), nil
}

// Update replaces the user, products and status of o.ID.
func (r *Repo) Update(ctx context.Context, o domain.Order) (domain.Order, error) {
	query, args, err := postgres.Builder().
		Update(table).
		Set("user_id", o.UserID).
		Set("product_ids", o.ProductIDs).
		Set("status", string(o.Status)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": o.ID}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build update order: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		return domain.Order{}, postgres.MapError(err, "order", o.ID)
	}
	return row.toDomain(), nil
}

// UpdateStatus moves order id to status.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	query, args, err := postgres.Builder().
		Update(table).
		Set("status", string(status)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix(returning).
		ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build update order status: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, r.q, &row, query, args...); err != nil {
		return domain.Order{}, postgres.MapError(err, "order", id)
	}
	return row.toDomain(), nil
}

// UserExists reports whether a user with id exists.
func (r *Repo) UserExists(ctx context.Context, id int64) (bool, error) {
	query, args, err := postgres.Builder().
		Select("1").
		Prefix("SELECT EXISTS (").
		From("users").
		Where(sq.Eq{"id": id}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build user exists: %w", err)
	}

	var exists bool
	if err := r.q.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}

// CountProducts returns how many of ids name an existing product.
func (r *Repo) CountProducts(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := postgres.Builder().
		Select("count(*)").
		From("products").
		Where("id = ANY(?)", ids).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count products: %w", err)
	}

	var n int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

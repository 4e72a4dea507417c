package domain

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusProcessed OrderStatus = "processed"
	OrderStatusModified  OrderStatus = "modified"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is owned by the order service. The pipeline only sees its id, its
// user and the summary text built from them.
type Order struct {
	ID         int64
	UserID     int64
	ProductIDs []int64
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Summary renders the free-text payload published for a transition, e.g.
// "Order 42 for user 7 created".
func (o Order) Summary(action string) string {
	return fmt.Sprintf("Order %d for user %d %s", o.ID, o.UserID, action)
}

// Validate enforces one user and a non-empty set of distinct products.
func (o Order) Validate() error {
	var errs []FieldError
	if o.UserID <= 0 {
		errs = append(errs, FieldError{Field: "user_id", Message: "must be positive"})
	}
	if len(o.ProductIDs) == 0 {
		errs = append(errs, FieldError{Field: "product_ids", Message: "at least one product is required"})
	}

	seen := make(map[int64]struct{}, len(o.ProductIDs))
	for _, id := range o.ProductIDs {
		if id <= 0 {
			errs = append(errs, FieldError{Field: "product_ids", Message: fmt.Sprintf("invalid product id %d", id)})
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, FieldError{Field: "product_ids", Message: fmt.Sprintf("duplicate product id %d", id)})
			continue
		}
		seen[id] = struct{}{}
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

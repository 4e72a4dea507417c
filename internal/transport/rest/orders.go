package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nsridhar76/go-orderevents/internal/auth"
	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/service/order"
)

type orderService interface {
	Create(ctx context.Context, in order.Input) (domain.Order, error)
	Get(ctx context.Context, id int64) (domain.Order, error)
	Modify(ctx context.Context, id int64, in order.Input) (domain.Order, error)
	Process(ctx context.Context, id int64) (domain.Order, error)
	Cancel(ctx context.Context, id int64) (domain.Order, error)
}

type orderRequest struct {
	UserID     int64   `json:"user_id"`
	ProductIDs []int64 `json:"product_ids"`
}

type orderResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	ProductIDs []int64   `json:"product_ids"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		ProductIDs: o.ProductIDs,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

// OrderHandler serves /orders.
type OrderHandler struct {
	orders    orderService
	adminRole string
	log       *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orders orderService, adminRole string, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		adminRole: adminRole,
		log:       logger.With("handler", "orders"),
	}
}

// Create places an order. A missing user_id defaults to the caller; only
// admins may order on behalf of someone else.
// POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// Get returns one order.
// GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Modify replaces the user and products of an order.
// PUT /orders/{id}
func (h *OrderHandler) Modify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Modify(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Process marks an order as processed.
// POST /orders/{id}/process
func (h *OrderHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Process)
}

// Cancel cancels an order.
// DELETE /orders/{id}
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orders.Cancel)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (domain.Order, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := fn(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) decodeInput(w http.ResponseWriter, r *http.Request) (order.Input, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return order.Input{}, false
	}

	caller, _ := auth.IdentityFromCtx(r.Context())
	if req.UserID == 0 {
		req.UserID = caller.UserID
	}
	if req.UserID != caller.UserID && !caller.HasRole(h.adminRole) {
		writeError(w, http.StatusForbidden, "cannot order on behalf of another user")
		return order.Input{}, false
	}
	return order.Input{UserID: req.UserID, ProductIDs: req.ProductIDs}, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nsridhar76/go-orderevents/internal/domain"
	"github.com/nsridhar76/go-orderevents/internal/service/eventstore"
)

type eventService interface {
	ListEvents(ctx context.Context, in eventstore.ListInput) (eventstore.ListResult, error)
	GetEvent(ctx context.Context, id int64) (domain.OrderEvent, error)
	DeleteEvent(ctx context.Context, id int64) error
}

func toEventResponse(e domain.OrderEvent) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Topic:       e.Topic.String(),
		Description: e.Description,
		OccurredOn:  e.OccurredOn.Format("2006-01-02"),
	}
}

type eventResponse struct {
	ID          int64  `json:"id"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
	OccurredOn  string `json:"occurred_on"`
}

type eventListResponse struct {
	Events []eventResponse `json:"events"`
	Total  int             `json:"total"`
}

// EventHandler serves the administrative /admin/events endpoints.
type EventHandler struct {
	events eventService
	log    *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events eventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, log: logger.With("handler", "events")}
}

// List returns stored events, newest first.
// GET /admin/events?topic=order-dead-letter&limit=50&offset=0
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := eventstore.ListInput{Topic: domain.Topic(q.Get("topic"))}

	var err error
	if v := q.Get("limit"); v != "" {
		if in.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if in.Offset, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
	}

	res, err := h.events.ListEvents(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}

	out := eventListResponse{Events: make([]eventResponse, len(res.Events)), Total: res.Total}
	for i, e := range res.Events {
		out.Events[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// Get returns one event.
// GET /admin/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	event, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// Delete removes one event.
// DELETE /admin/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

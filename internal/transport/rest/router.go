// Package rest exposes the order operations and the event administration
// endpoints over HTTP.
package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Health *HealthHandler
	Orders *OrderHandler
	Events *EventHandler
}

// NewRouter builds the HTTP routing tree.
func NewRouter(logger *slog.Logger, validator tokenValidator, adminRole string, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/live", h.Health.Live)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(validator))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Orders.Create)
			r.Get("/{id}", h.Orders.Get)
			r.Put("/{id}", h.Orders.Modify)
			r.Post("/{id}/process", h.Orders.Process)
			r.Delete("/{id}", h.Orders.Cancel)
		})

		r.Route("/admin/events", func(r chi.Router) {
			r.Use(RequireRole(adminRole))
			r.Get("/", h.Events.List)
			r.Get("/{id}", h.Events.Get)
			r.Delete("/{id}", h.Events.Delete)
		})
	})

	return r
}

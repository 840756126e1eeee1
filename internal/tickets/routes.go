package tickets

import (
	"github.com/go-chi/chi/v5"

	"github.com/fixflow-app/fixflow/internal/authz"
)

// MountRoutes registers ticket routes behind the authorization pipeline.
func (h *Handler) MountRoutes(r chi.Router, pipeline authz.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(pipeline.Require(authz.PermTicketsView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(pipeline.Require(authz.PermTicketsCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(pipeline.Require(authz.PermTicketsEdit))
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(pipeline.Require(authz.PermTicketsAssign))
		r.Post("/{id}/assign", h.Assign)
	})
	r.Group(func(r chi.Router) {
		r.Use(pipeline.Require(authz.PermTicketsDelete))
		r.Delete("/{id}", h.Delete)
	})
}

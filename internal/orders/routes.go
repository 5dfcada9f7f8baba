package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/segundop/segundop/internal/identity"
)

// MountRoutes registers order routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.identity.Authenticate)
		r.Use(h.identity.RequireRole(identity.RoleClient))
		r.Post("/orders", h.place)
		r.Get("/orders/mine", h.listMine)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.identity.Authenticate)
		r.Use(h.identity.RequireRole(identity.RoleCompany))
		r.Get("/orders/received", h.listReceived)
		r.Put("/orders/{id}/status", h.updateStatus)
	})
}

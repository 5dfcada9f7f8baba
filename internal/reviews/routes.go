package reviews

import (
	"github.com/go-chi/chi/v5"

	"github.com/segundop/segundop/internal/identity"
)

// MountRoutes registers review routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reviews/product/{id}", h.listByProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.identity.Authenticate)
		r.Use(h.identity.RequireRole(identity.RoleClient))
		r.Post("/reviews", h.create)
	})
}

package catalog

import (
	"github.com/go-chi/chi/v5"

	"github.com/segundop/segundop/internal/identity"
)

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products/all", h.listPublic)

	r.Group(func(r chi.Router) {
		r.Use(h.identity.Authenticate)
		r.Use(h.identity.RequireRole(identity.RoleCompany))
		r.Post("/products", h.create)
		r.Get("/products", h.listOwn)
		r.Get("/products/{id}", h.getOwn)
		r.Put("/products/{id}", h.update)
		r.Delete("/products/{id}", h.delete)
	})
}

package tasks

import (
	"github.com/go-chi/chi/v5"

	"github.com/aysenur-23/revium-erp-suite-sub006/internal/shared"
)

// MountRoutes attaches task routes. Assignment, advancement and approval
// are guarded inside the service because their checks depend on the task
// itself (assignee, department scope), not just the route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTasksView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTasksCreate))
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTasksEdit))
		r.Put("/{id}", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuthenticated)
		r.Post("/{id}/assign", h.Assign)
		r.Post("/{id}/advance", h.Advance)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}

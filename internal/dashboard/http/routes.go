package dashboardhttp

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleDashboard)
	r.Get("/trends", h.handleTrends)
	r.Get("/waterfall", h.handleWaterfall)
	r.Get("/aging", h.handleAging)
	r.Get("/customers", h.handleCustomers)
	r.Get("/vendors", h.handleVendors)
	r.Get("/products", h.handleProducts)
	r.Get("/insights", h.handleInsights)
}

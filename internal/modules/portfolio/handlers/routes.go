package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetSummary)
		r.Get("/holdings/{instrumentID}", func(w http.ResponseWriter, r *http.Request) {
			instrumentID := chi.URLParam(r, "instrumentID")
			h.HandleGetHolding(w, r, instrumentID)
		})
	})
}

// Package handlers provides HTTP handlers for portfolio views.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshapp/nivesh/internal/auth"
	"github.com/niveshapp/nivesh/internal/domain"
	"github.com/niveshapp/nivesh/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetSummary handles GET /api/portfolio
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	summary, err := h.service.GetSummary(userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to build portfolio summary")
		h.writeError(w, http.StatusInternalServerError, "Failed to build portfolio summary")
		return
	}

	response := map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetHolding handles GET /api/portfolio/holdings/{instrumentID}
func (h *Handler) HandleGetHolding(w http.ResponseWriter, r *http.Request, instrumentID string) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	detail, err := h.service.GetHoldingDetail(userID, instrumentID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldingNotFound) {
			h.writeError(w, http.StatusNotFound, "Holding not found")
			return
		}
		h.log.Error().Err(err).
			Str("user_id", userID).
			Str("instrument_id", instrumentID).
			Msg("Failed to get holding")
		h.writeError(w, http.StatusInternalServerError, "Failed to get holding")
		return
	}

	response := map[string]interface{}{
		"data": detail,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"status":  status,
		},
	})
}

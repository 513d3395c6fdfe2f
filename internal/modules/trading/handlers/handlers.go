// Package handlers provides HTTP handlers for purchase and transaction
// history operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/niveshapp/nivesh/internal/auth"
	"github.com/niveshapp/nivesh/internal/domain"
	"github.com/niveshapp/nivesh/internal/modules/ledger"
	"github.com/niveshapp/nivesh/internal/modules/trading"
)

// TransactionLister is the history surface the handlers need
type TransactionLister interface {
	GetByID(userID, transactionID string) (*domain.TransactionRecord, error)
	ListByUser(userID string, filter ledger.ListFilter) ([]domain.TransactionRecord, int, error)
}

// Handler handles trading HTTP requests
type Handler struct {
	engine       *trading.Engine
	transactions TransactionLister
	validate     *validator.Validate
	log          zerolog.Logger
}

// NewHandler creates a new trading handler
func NewHandler(
	engine *trading.Engine,
	transactions TransactionLister,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		engine:       engine,
		transactions: transactions,
		validate:     validator.New(),
		log:          log.With().Str("handler", "trading").Logger(),
	}
}

// buyRequest is the body of POST /api/transactions/buy. Units arrive as a
// JSON number or string; decimal.Decimal accepts both without float
// truncation. Units is a pointer so that an explicit zero is distinguished
// from a missing field: zero reaches the engine's quantity check instead of
// failing the required validation.
type buyRequest struct {
	InstrumentID string           `json:"instrumentId" validate:"required"`
	Units        *decimal.Decimal `json:"units" validate:"required"`
}

// HandleBuy handles POST /api/transactions/buy
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "instrumentId and units are required")
		return
	}

	result, err := h.engine.ExecuteBuy(r.Context(), userID, req.InstrumentID, *req.Units)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"transactionId": result.TransactionID,
			"newBalance":    result.NewBalance,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleListTransactions handles GET /api/transactions
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	filter := ledger.ListFilter{
		Direction: r.URL.Query().Get("type"),
		Status:    r.URL.Query().Get("status"),
		Page:      1,
		Limit:     10,
	}
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}

	records, total, err := h.transactions.ListByUser(userID, filter)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		h.writeError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"transactions": records,
			"pagination": map[string]interface{}{
				"page":       filter.Page,
				"limit":      filter.Limit,
				"total":      total,
				"totalPages": totalPages,
			},
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetTransaction handles GET /api/transactions/{id}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	record, err := h.transactions.GetByID(userID, transactionID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to get transaction")
		h.writeError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}
	if record == nil {
		h.writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	response := map[string]interface{}{
		"data": record,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeEngineError maps purchase failures to HTTP statuses. The cause of a
// transaction failure is already logged by the engine and never exposed.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInstrumentNotFound):
		h.writeError(w, http.StatusNotFound, "Instrument not found or not tradable")
	case errors.Is(err, domain.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, domain.ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, "Units must be a positive number")
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.writeError(w, http.StatusBadRequest, "Insufficient wallet balance")
	default:
		h.writeError(w, http.StatusInternalServerError, "Transaction failed")
	}
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

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshapp/nivesh/internal/auth"
	"github.com/niveshapp/nivesh/internal/domain"
	"github.com/niveshapp/nivesh/internal/modules/portfolio"
)

var testSecret = []byte("test-secret")

type fakeAccounts struct{ account *domain.Account }

func (f *fakeAccounts) Get(string) (*domain.Account, error) { return f.account, nil }

type fakeHoldings struct{ holdings []domain.Holding }

func (f *fakeHoldings) Get(userID, instrumentID string) (*domain.Holding, error) {
	for _, h := range f.holdings {
		if h.InstrumentID == instrumentID {
			h := h
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeHoldings) ListByUser(string) ([]domain.Holding, error) { return f.holdings, nil }

type fakeTransactions struct{}

func (fakeTransactions) ListRecentByUser(string, int) ([]domain.TransactionRecord, error) {
	return nil, nil
}

func (fakeTransactions) ListByUserAndInstrument(string, string) ([]domain.TransactionRecord, error) {
	return nil, nil
}

type fakeQuotes struct{}

func (fakeQuotes) GetQuote(instrumentID string) (*domain.Quote, error) {
	return &domain.Quote{
		InstrumentID: instrumentID,
		PricePerUnit: decimal.RequireFromString("110"),
		IsActive:     true,
		FetchedAt:    time.Now().UTC(),
	}, nil
}

func newTestRouter(t *testing.T, accounts *fakeAccounts, holdings *fakeHoldings) chi.Router {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := portfolio.NewService(accounts, holdings, fakeTransactions{}, fakeQuotes{}, log)
	handler := NewHandler(service, log)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(testSecret, log))
		handler.RegisterRoutes(r)
	})

	return router
}

func authedRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()

	token, err := auth.GenerateToken(testSecret, "u1", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestHandleGetSummary(t *testing.T) {
	accounts := &fakeAccounts{account: &domain.Account{
		ID:            "u1",
		WalletBalance: decimal.RequireFromString("500"),
	}}
	holdings := &fakeHoldings{holdings: []domain.Holding{{
		UserID:        "u1",
		InstrumentID:  "tcs",
		TotalUnits:    decimal.RequireFromString("10"),
		AveragePrice:  decimal.RequireFromString("100"),
		TotalInvested: decimal.RequireFromString("1000"),
	}}}
	router := newTestRouter(t, accounts, holdings)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/portfolio/"))

	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "500", data["walletBalance"])
	assert.Equal(t, "1000", data["totalInvested"])
	assert.Equal(t, "1100", data["currentValue"])
	assert.Equal(t, "10", data["returnPercentage"])
	assert.Equal(t, "1600", data["totalValue"])

	views := data["holdings"].([]interface{})
	require.Len(t, views, 1)
	view := views[0].(map[string]interface{})
	assert.Equal(t, "110", view["currentPrice"])
	assert.Equal(t, "100", view["returns"])
}

func TestHandleGetSummary_AccountNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{}, &fakeHoldings{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/portfolio/"))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetHolding(t *testing.T) {
	accounts := &fakeAccounts{account: &domain.Account{ID: "u1", WalletBalance: decimal.Zero}}
	holdings := &fakeHoldings{holdings: []domain.Holding{{
		UserID:        "u1",
		InstrumentID:  "tcs",
		TotalUnits:    decimal.RequireFromString("2"),
		AveragePrice:  decimal.RequireFromString("100"),
		TotalInvested: decimal.RequireFromString("200"),
	}}}
	router := newTestRouter(t, accounts, holdings)

	t.Run("found", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/portfolio/holdings/tcs"))

		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "220", data["currentValue"])
		assert.Contains(t, data, "transactions")
	})

	t.Run("not held", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/portfolio/holdings/reliance"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/portfolio/holdings/tcs", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

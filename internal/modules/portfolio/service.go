// Package portfolio aggregates a user's holdings, wallet balance and recent
// activity into read-side summary views.
package portfolio

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/niveshapp/nivesh/internal/domain"
)

// percentPrecision is the number of decimal places kept on return
// percentages in summary views.
const percentPrecision = 2

// recentTransactionCount is how many latest records a summary includes.
const recentTransactionCount = 5

// AccountSource provides wallet balances
type AccountSource interface {
	Get(userID string) (*domain.Account, error)
}

// HoldingSource provides a user's holdings
type HoldingSource interface {
	Get(userID, instrumentID string) (*domain.Holding, error)
	ListByUser(userID string) ([]domain.Holding, error)
}

// TransactionSource provides transaction history
type TransactionSource interface {
	ListRecentByUser(userID string, limit int) ([]domain.TransactionRecord, error)
	ListByUserAndInstrument(userID, instrumentID string) ([]domain.TransactionRecord, error)
}

// QuoteSource provides current instrument prices
type QuoteSource interface {
	GetQuote(instrumentID string) (*domain.Quote, error)
}

// HoldingView is a holding valued at the current market price.
type HoldingView struct {
	domain.Holding
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	CurrentValue     decimal.Decimal `json:"currentValue"`
	Returns          decimal.Decimal `json:"returns"`
	ReturnPercentage decimal.Decimal `json:"returnPercentage"`
}

// Summary is the response of GET /api/portfolio.
type Summary struct {
	WalletBalance      decimal.Decimal            `json:"walletBalance"`
	TotalInvested      decimal.Decimal            `json:"totalInvested"`
	CurrentValue       decimal.Decimal            `json:"currentValue"`
	Returns            decimal.Decimal            `json:"returns"`
	ReturnPercentage   decimal.Decimal            `json:"returnPercentage"`
	TotalValue         decimal.Decimal            `json:"totalValue"`
	Holdings           []HoldingView              `json:"holdings"`
	RecentTransactions []domain.TransactionRecord `json:"recentTransactions"`
}

// HoldingDetail is the response of GET /api/portfolio/holdings/{instrumentID}.
type HoldingDetail struct {
	HoldingView
	Transactions []domain.TransactionRecord `json:"transactions"`
}

// Service computes portfolio views
type Service struct {
	accounts     AccountSource
	holdings     HoldingSource
	transactions TransactionSource
	quotes       QuoteSource
	log          zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	accounts AccountSource,
	holdings HoldingSource,
	transactions TransactionSource,
	quotes QuoteSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		accounts:     accounts,
		holdings:     holdings,
		transactions: transactions,
		quotes:       quotes,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetSummary values every holding at the current price and aggregates the
// totals. A holding whose instrument cannot be priced is valued at its cost
// basis rather than dropped, so totals never silently shrink.
func (s *Service) GetSummary(userID string) (*Summary, error) {
	account, err := s.accounts.Get(userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	holdings, err := s.holdings.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	views := make([]HoldingView, 0, len(holdings))
	totalInvested := decimal.Zero
	currentValue := decimal.Zero

	for _, holding := range holdings {
		view := s.valueHolding(holding)
		views = append(views, view)
		totalInvested = totalInvested.Add(holding.TotalInvested)
		currentValue = currentValue.Add(view.CurrentValue)
	}

	returns := currentValue.Sub(totalInvested)

	recent, err := s.transactions.ListRecentByUser(userID, recentTransactionCount)
	if err != nil {
		return nil, err
	}

	return &Summary{
		WalletBalance:      account.WalletBalance,
		TotalInvested:      totalInvested,
		CurrentValue:       currentValue,
		Returns:            returns,
		ReturnPercentage:   percentOf(returns, totalInvested),
		TotalValue:         account.WalletBalance.Add(currentValue),
		Holdings:           views,
		RecentTransactions: recent,
	}, nil
}

// GetHoldingDetail returns one valued holding together with every
// transaction the user made on that instrument.
// Returns domain.ErrHoldingNotFound when the user holds no units of it.
func (s *Service) GetHoldingDetail(userID, instrumentID string) (*HoldingDetail, error) {
	holding, err := s.holdings.Get(userID, instrumentID)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, domain.ErrHoldingNotFound
	}

	transactions, err := s.transactions.ListByUserAndInstrument(userID, instrumentID)
	if err != nil {
		return nil, err
	}

	return &HoldingDetail{
		HoldingView:  s.valueHolding(*holding),
		Transactions: transactions,
	}, nil
}

// valueHolding prices a holding with the quote source, falling back to the
// average purchase price when the instrument is gone or the lookup fails.
func (s *Service) valueHolding(holding domain.Holding) HoldingView {
	price := holding.AveragePrice

	quote, err := s.quotes.GetQuote(holding.InstrumentID)
	switch {
	case err == nil:
		price = quote.PricePerUnit
	case errors.Is(err, domain.ErrInstrumentNotFound):
		s.log.Warn().
			Str("instrument_id", holding.InstrumentID).
			Msg("Holding references unknown instrument, valuing at cost")
	default:
		s.log.Error().Err(err).
			Str("instrument_id", holding.InstrumentID).
			Msg("Failed to price holding, valuing at cost")
	}

	currentValue := holding.TotalUnits.Mul(price)
	returns := currentValue.Sub(holding.TotalInvested)

	return HoldingView{
		Holding:          holding,
		CurrentPrice:     price,
		CurrentValue:     currentValue,
		Returns:          returns,
		ReturnPercentage: percentOf(returns, holding.TotalInvested),
	}
}

func percentOf(part, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(base).Round(percentPrecision)
}

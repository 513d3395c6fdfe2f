// Package trading implements the purchase engine: the only component that
// mutates wallet balances and holdings, always inside one atomic unit.
package trading

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/niveshapp/nivesh/internal/database"
	"github.com/niveshapp/nivesh/internal/domain"
	"github.com/niveshapp/nivesh/internal/modules/ledger"
	"github.com/niveshapp/nivesh/pkg/id"
)

// AccountStore is the account surface the engine needs
type AccountStore interface {
	Get(userID string) (*domain.Account, error)
	GetTx(q ledger.Querier, userID string) (*domain.Account, error)
	SetBalanceTx(q ledger.Querier, userID string, balance decimal.Decimal) error
}

// HoldingStore is the holding surface the engine needs
type HoldingStore interface {
	GetTx(q ledger.Querier, userID, instrumentID string) (*domain.Holding, error)
	InsertTx(q ledger.Querier, h domain.Holding) error
	UpdateTx(q ledger.Querier, h domain.Holding) error
}

// TransactionStore is the audit-trail surface the engine needs
type TransactionStore interface {
	InsertTx(q ledger.Querier, rec domain.TransactionRecord) error
}

// PricingSource is the read-only instrument lookup the engine consumes.
// Implementations must return domain.ErrInstrumentNotFound for unknown ids.
type PricingSource interface {
	GetInstrument(instrumentID string) (*domain.Instrument, error)
}

// PurchaseResult is the success outcome of ExecuteBuy
type PurchaseResult struct {
	TransactionID string
	NewBalance    decimal.Decimal
}

// Engine executes buy transactions. For one call it performs
// validate -> debit -> record -> upsert-holding as a single database
// transaction: all four writes commit together or none do.
type Engine struct {
	ledgerDB     *sql.DB
	accounts     AccountStore
	holdings     HoldingStore
	transactions TransactionStore
	pricing      PricingSource
	log          zerolog.Logger

	// Injectable for deterministic tests
	now   func() time.Time
	newID func() string
}

// NewEngine creates a new purchase engine
func NewEngine(
	ledgerDB *sql.DB,
	accounts AccountStore,
	holdings HoldingStore,
	transactions TransactionStore,
	pricing PricingSource,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		ledgerDB:     ledgerDB,
		accounts:     accounts,
		holdings:     holdings,
		transactions: transactions,
		pricing:      pricing,
		log:          log.With().Str("component", "purchase_engine").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        id.NewTransactionID,
	}
}

// ExecuteBuy purchases units of an instrument for a user.
//
// Preconditions are checked in order, each with its own typed failure:
//  1. the instrument exists and is active (domain.ErrInstrumentNotFound)
//  2. units is positive (domain.ErrInvalidQuantity)
//  3. the wallet covers units × pricePerUnit (domain.ErrInsufficientFunds)
//
// The balance is re-read and re-checked inside the transaction: the
// precondition check may race with a concurrent debit for the same user,
// and the wallet must never go negative.
//
// On any store failure the whole set of writes rolls back and the caller
// receives domain.ErrTransactionFailed; the cause is logged, not exposed.
// The engine never retries - a failed call left no partial state, so the
// caller may simply invoke ExecuteBuy again.
func (e *Engine) ExecuteBuy(ctx context.Context, userID, instrumentID string, units decimal.Decimal) (*PurchaseResult, error) {
	instrument, err := e.pricing.GetInstrument(instrumentID)
	if err != nil {
		if errors.Is(err, domain.ErrInstrumentNotFound) {
			return nil, domain.ErrInstrumentNotFound
		}
		e.log.Error().Err(err).Str("instrument_id", instrumentID).Msg("Instrument lookup failed")
		return nil, domain.ErrTransactionFailed
	}
	if !instrument.IsActive {
		return nil, domain.ErrInstrumentNotFound
	}

	if !units.IsPositive() {
		return nil, domain.ErrInvalidQuantity
	}

	// Snapshot the price now; the record and the holding both use this value
	// even if the instrument is repriced mid-flight.
	totalAmount := domain.TotalAmount(units, instrument.PricePerUnit)

	account, err := e.accounts.Get(userID)
	if err != nil {
		e.log.Error().Err(err).Str("user_id", userID).Msg("Account lookup failed")
		return nil, domain.ErrTransactionFailed
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	if account.WalletBalance.LessThan(totalAmount) {
		return nil, domain.ErrInsufficientFunds
	}

	var result PurchaseResult

	txErr := database.WithTransaction(ctx, e.ledgerDB, func(tx *sql.Tx) error {
		// Authoritative balance read: the check above may be stale by now.
		current, err := e.accounts.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrAccountNotFound
		}
		if current.WalletBalance.LessThan(totalAmount) {
			return domain.ErrInsufficientFunds
		}

		newBalance := current.WalletBalance.Sub(totalAmount)
		if err := e.accounts.SetBalanceTx(tx, userID, newBalance); err != nil {
			return err
		}

		now := e.now()
		record := domain.TransactionRecord{
			ID:           e.newID(),
			UserID:       userID,
			InstrumentID: instrumentID,
			Direction:    domain.DirectionBuy,
			Units:        units,
			UnitPrice:    instrument.PricePerUnit,
			TotalAmount:  totalAmount,
			Status:       domain.StatusCompleted,
			CreatedAt:    now,
		}
		if err := e.transactions.InsertTx(tx, record); err != nil {
			return err
		}

		holding, err := e.holdings.GetTx(tx, userID, instrumentID)
		if err != nil {
			return err
		}

		if holding == nil {
			err = e.holdings.InsertTx(tx, domain.Holding{
				UserID:          userID,
				InstrumentID:    instrumentID,
				TotalUnits:      units,
				AveragePrice:    instrument.PricePerUnit,
				TotalInvested:   totalAmount,
				FirstAcquiredAt: now,
				LastUpdated:     now,
			})
		} else {
			holding.TotalUnits, holding.TotalInvested, holding.AveragePrice =
				domain.WeightedAverage(holding.TotalUnits, holding.TotalInvested, units, totalAmount)
			holding.LastUpdated = now
			err = e.holdings.UpdateTx(tx, *holding)
		}
		if err != nil {
			return err
		}

		result = PurchaseResult{
			TransactionID: record.ID,
			NewBalance:    newBalance,
		}
		return nil
	})

	if txErr != nil {
		// The serialized-conflict outcome keeps its identity; everything
		// else is an infrastructure failure with the cause logged only.
		if errors.Is(txErr, domain.ErrInsufficientFunds) {
			return nil, domain.ErrInsufficientFunds
		}
		e.log.Error().
			Err(txErr).
			Str("user_id", userID).
			Str("instrument_id", instrumentID).
			Msg("Purchase transaction rolled back")
		return nil, domain.ErrTransactionFailed
	}

	e.log.Info().
		Str("user_id", userID).
		Str("instrument_id", instrumentID).
		Str("transaction_id", result.TransactionID).
		Str("units", units.String()).
		Str("total_amount", totalAmount.String()).
		Msg("Purchase completed")

	return &result, nil
}

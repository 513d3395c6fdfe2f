// Package seed populates the ledger with demo instruments and a demo
// account so a fresh install is immediately usable.
package seed

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/niveshapp/nivesh/internal/domain"
)

// demoUserID is stable across restarts so issued tokens keep working.
const demoUserID = "demo-user"

// demoWalletBalance is the opening wallet balance of the demo account.
var demoWalletBalance = decimal.RequireFromString("100000")

var demoInstruments = []domain.Instrument{
	{ID: "tcs", Symbol: "TCS", Name: "Tata Consultancy Services", Category: domain.CategoryStock, PricePerUnit: decimal.RequireFromString("3420.50")},
	{ID: "reliance", Symbol: "RELIANCE", Name: "Reliance Industries", Category: domain.CategoryStock, PricePerUnit: decimal.RequireFromString("2340.25")},
	{ID: "hdfcbank", Symbol: "HDFCBANK", Name: "HDFC Bank", Category: domain.CategoryStock, PricePerUnit: decimal.RequireFromString("1565.80")},
	{ID: "sbibcf", Symbol: "SBIBCF", Name: "SBI Balanced Core Fund", Category: domain.CategoryMutualFund, PricePerUnit: decimal.RequireFromString("285.45")},
	{ID: "nifty50etf", Symbol: "NIFTY50ETF", Name: "Nifty 50 ETF", Category: domain.CategoryETF, PricePerUnit: decimal.RequireFromString("245.30")},
}

// Seeder inserts demo data into the ledger database
type Seeder struct {
	db  *sql.DB
	log zerolog.Logger
}

// New creates a new seeder
func New(db *sql.DB, log zerolog.Logger) *Seeder {
	return &Seeder{
		db:  db,
		log: log.With().Str("component", "seed").Logger(),
	}
}

// Run inserts the demo instruments and the demo account. It is idempotent:
// existing rows are left untouched, so balances survive restarts.
func (s *Seeder) Run() error {
	inserted, err := s.seedInstruments()
	if err != nil {
		return fmt.Errorf("failed to seed instruments: %w", err)
	}

	created, err := s.seedDemoAccount()
	if err != nil {
		return fmt.Errorf("failed to seed demo account: %w", err)
	}

	s.log.Info().
		Int("instruments_inserted", inserted).
		Bool("demo_account_created", created).
		Msg("Seeding completed")

	return nil
}

// DemoUserID returns the id of the seeded demo account.
func DemoUserID() string {
	return demoUserID
}

func (s *Seeder) seedInstruments() (int, error) {
	now := time.Now().UTC().Unix()
	inserted := 0

	for _, instrument := range demoInstruments {
		result, err := s.db.Exec(
			`INSERT OR IGNORE INTO instruments (id, symbol, name, category, price_per_unit, is_active, created_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?)`,
			instrument.ID,
			instrument.Symbol,
			instrument.Name,
			string(instrument.Category),
			instrument.PricePerUnit.String(),
			now,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert instrument %s: %w", instrument.Symbol, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to check instrument insert: %w", err)
		}
		if rows > 0 {
			inserted++
		}
	}

	return inserted, nil
}

func (s *Seeder) seedDemoAccount() (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO accounts (id, wallet_balance, created_at) VALUES (?, ?, ?)`,
		demoUserID,
		demoWalletBalance.String(),
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check account insert: %w", err)
	}

	return rows > 0, nil
}

// CreateAccount creates a fresh funded account and returns its id. Intended
// for demo and local development flows.
func (s *Seeder) CreateAccount(balance decimal.Decimal) (string, error) {
	id := uuid.NewString()

	_, err := s.db.Exec(
		`INSERT INTO accounts (id, wallet_balance, created_at) VALUES (?, ?, ?)`,
		id, balance.String(), time.Now().UTC().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Info().Str("user_id", id).Str("balance", balance.String()).Msg("Account created")
	return id, nil
}

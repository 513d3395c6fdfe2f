// Package pricing provides the read-only pricing source: instrument lookup
// backed by the ledger database, fronted by a TTL quote cache for read-side
// consumers. The purchase engine always reads instruments straight from the
// repository so the snapshotted price is never stale.
package pricing

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/niveshapp/nivesh/internal/domain"
)

// instrumentColumns is the list of columns for the instruments table.
// Column order must match scanInstrument().
const instrumentColumns = `id, symbol, name, category, price_per_unit, is_active, created_at`

// InstrumentRepository handles instrument database operations
type InstrumentRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewInstrumentRepository creates a new instrument repository
func NewInstrumentRepository(db *sql.DB, log zerolog.Logger) *InstrumentRepository {
	return &InstrumentRepository{
		db:  db,
		log: log.With().Str("repo", "instrument").Logger(),
	}
}

// Get retrieves an instrument by id. Returns domain.ErrInstrumentNotFound
// when the instrument does not exist; callers decide whether an inactive
// instrument is acceptable.
func (r *InstrumentRepository) Get(instrumentID string) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE id = ?`

	instrument, err := scanInstrument(r.db.QueryRow(query, instrumentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInstrumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	return &instrument, nil
}

// GetBySymbol retrieves an instrument by its ticker symbol
func (r *InstrumentRepository) GetBySymbol(symbol string) (*domain.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE symbol = ?`

	instrument, err := scanInstrument(r.db.QueryRow(query, strings.ToUpper(strings.TrimSpace(symbol))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInstrumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument by symbol: %w", err)
	}

	return &instrument, nil
}

// Create inserts a new instrument. Used by seeding and admin tooling; the
// purchase engine never writes instruments.
func (r *InstrumentRepository) Create(instrument domain.Instrument) error {
	if !instrument.PricePerUnit.IsPositive() {
		return fmt.Errorf("failed to create instrument: price must be positive")
	}

	query := `
		INSERT INTO instruments (id, symbol, name, category, price_per_unit, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		instrument.ID,
		strings.ToUpper(strings.TrimSpace(instrument.Symbol)),
		instrument.Name,
		string(instrument.Category),
		instrument.PricePerUnit.String(),
		boolToInt(instrument.IsActive),
		instrument.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create instrument: %w", err)
	}

	r.log.Info().
		Str("instrument_id", instrument.ID).
		Str("symbol", instrument.Symbol).
		Msg("Instrument created")

	return nil
}

func scanInstrument(row interface{ Scan(...interface{}) error }) (domain.Instrument, error) {
	var instrument domain.Instrument
	var category, price string
	var isActive int
	var createdAt int64

	err := row.Scan(
		&instrument.ID,
		&instrument.Symbol,
		&instrument.Name,
		&category,
		&price,
		&isActive,
		&createdAt,
	)
	if err != nil {
		return instrument, err
	}

	instrument.Category = domain.Category(category)
	instrument.IsActive = isActive != 0
	instrument.CreatedAt = time.Unix(createdAt, 0).UTC()

	if instrument.PricePerUnit, err = decimal.NewFromString(price); err != nil {
		return instrument, fmt.Errorf("corrupt price_per_unit: %w", err)
	}

	return instrument, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/niveshapp/nivesh/internal/domain"
)

// holdingColumns is the list of columns for the holdings table.
// Column order must match scanHolding().
const holdingColumns = `id, user_id, instrument_id, total_units, average_price, total_invested, first_acquired_at, last_updated`

// HoldingRepository handles holding database operations
type HoldingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *sql.DB, log zerolog.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:  db,
		log: log.With().Str("repo", "holding").Logger(),
	}
}

// GetTx retrieves the holding for a (user, instrument) pair within the
// caller's transaction. Returns (nil, nil) when the user has no position.
func (r *HoldingRepository) GetTx(q Querier, userID, instrumentID string) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE user_id = ? AND instrument_id = ?`

	holding, err := scanHolding(q.QueryRow(query, userID, instrumentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &holding, nil
}

// Get retrieves the holding for a (user, instrument) pair outside any
// transaction. Returns (nil, nil) when the user has no position.
func (r *HoldingRepository) Get(userID, instrumentID string) (*domain.Holding, error) {
	return r.GetTx(r.db, userID, instrumentID)
}

// InsertTx creates a new holding within the caller's transaction.
// The unique (user_id, instrument_id) index rejects a second holding for
// the same pair, which aborts the surrounding purchase transaction.
func (r *HoldingRepository) InsertTx(q Querier, h domain.Holding) error {
	query := `
		INSERT INTO holdings
		(user_id, instrument_id, total_units, average_price, total_invested, first_acquired_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.Exec(query,
		h.UserID,
		h.InstrumentID,
		h.TotalUnits.String(),
		h.AveragePrice.String(),
		h.TotalInvested.String(),
		h.FirstAcquiredAt.Unix(),
		h.LastUpdated.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	return nil
}

// UpdateTx rewrites the position totals of an existing holding within the
// caller's transaction. first_acquired_at is never touched after creation.
func (r *HoldingRepository) UpdateTx(q Querier, h domain.Holding) error {
	query := `
		UPDATE holdings
		SET total_units = ?, average_price = ?, total_invested = ?, last_updated = ?
		WHERE user_id = ? AND instrument_id = ?
	`

	result, err := q.Exec(query,
		h.TotalUnits.String(),
		h.AveragePrice.String(),
		h.TotalInvested.String(),
		h.LastUpdated.Unix(),
		h.UserID,
		h.InstrumentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check holding update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no holding to update for user %s instrument %s", h.UserID, h.InstrumentID)
	}

	return nil
}

// ListByUser retrieves all holdings for a user, most recently updated first
func (r *HoldingRepository) ListByUser(userID string) ([]domain.Holding, error) {
	query := `
		SELECT ` + holdingColumns + ` FROM holdings
		WHERE user_id = ?
		ORDER BY last_updated DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		holding, err := scanHoldingFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// Helper methods

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row rowScanner) (domain.Holding, error) {
	var h domain.Holding
	var totalUnits, averagePrice, totalInvested string
	var firstAcquiredAt, lastUpdated int64

	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.InstrumentID,
		&totalUnits,
		&averagePrice,
		&totalInvested,
		&firstAcquiredAt,
		&lastUpdated,
	)
	if err != nil {
		return h, err
	}

	if h.TotalUnits, err = decimal.NewFromString(totalUnits); err != nil {
		return h, fmt.Errorf("corrupt total_units: %w", err)
	}
	if h.AveragePrice, err = decimal.NewFromString(averagePrice); err != nil {
		return h, fmt.Errorf("corrupt average_price: %w", err)
	}
	if h.TotalInvested, err = decimal.NewFromString(totalInvested); err != nil {
		return h, fmt.Errorf("corrupt total_invested: %w", err)
	}

	h.FirstAcquiredAt = time.Unix(firstAcquiredAt, 0).UTC()
	h.LastUpdated = time.Unix(lastUpdated, 0).UTC()

	return h, nil
}

func scanHoldingFromRows(rows *sql.Rows) (domain.Holding, error) {
	return scanHolding(rows)
}

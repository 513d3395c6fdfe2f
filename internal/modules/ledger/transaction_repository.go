package ledger

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

// transactionColumns is the list of columns for the transactions table.
// Column order must match scanTransaction().
const transactionColumns = `id, user_id, instrument_id, direction, units, unit_price, total_amount, status, created_at`

// TransactionRepository handles the immutable transaction audit trail.
// Records are insert-only: there is no update or delete surface.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// InsertTx writes a new transaction record within the caller's transaction
func (r *TransactionRepository) InsertTx(q Querier, rec domain.TransactionRecord) error {
	query := `
		INSERT INTO transactions
		(id, user_id, instrument_id, direction, units, unit_price, total_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.Exec(query,
		rec.ID,
		rec.UserID,
		rec.InstrumentID,
		string(rec.Direction),
		rec.Units.String(),
		rec.UnitPrice.String(),
		rec.TotalAmount.String(),
		string(rec.Status),
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction record: %w", err)
	}

	return nil
}

// GetByID retrieves one of the user's transaction records by id.
// Returns (nil, nil) when no such record exists for this user.
func (r *TransactionRepository) GetByID(userID, transactionID string) (*domain.TransactionRecord, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND user_id = ?`

	rec, err := scanTransaction(r.db.QueryRow(query, transactionID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &rec, nil
}

// ListFilter narrows and pages a transaction history query
type ListFilter struct {
	Direction string // "buy" or "sell", empty for all
	Status    string // pending|completed|failed|cancelled, empty for all
	Page      int    // 1-based
	Limit     int
}

// ListByUser retrieves a page of the user's transaction history, most
// recent first, together with the total count for the filter.
func (r *TransactionRepository) ListByUser(userID string, filter ListFilter) ([]domain.TransactionRecord, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	where := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filter.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, filter.Direction)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM transactions WHERE " + whereClause
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM transactions WHERE " + whereClause +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	// Non-nil even when empty so the API serializes [] rather than null.
	records := []domain.TransactionRecord{}
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", err)
	}

	return records, total, nil
}

// ListRecentByUser retrieves the user's most recent transactions
func (r *TransactionRepository) ListRecentByUser(userID string, limit int) ([]domain.TransactionRecord, error) {
	records, _, err := r.ListByUser(userID, ListFilter{Page: 1, Limit: limit})
	return records, err
}

// ListByUserAndInstrument retrieves the user's transactions for one
// instrument, most recent first.
func (r *TransactionRepository) ListByUserAndInstrument(userID, instrumentID string) ([]domain.TransactionRecord, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? AND instrument_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(query, userID, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by instrument: %w", err)
	}
	defer rows.Close()

	records := []domain.TransactionRecord{}
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return records, nil
}

func scanTransaction(row rowScanner) (domain.TransactionRecord, error) {
	var rec domain.TransactionRecord
	var direction, status string
	var units, unitPrice, totalAmount string
	var createdAt int64

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.InstrumentID,
		&direction,
		&units,
		&unitPrice,
		&totalAmount,
		&status,
		&createdAt,
	)
	if err != nil {
		return rec, err
	}

	rec.Direction = domain.Direction(direction)
	rec.Status = domain.TransactionStatus(status)

	if rec.Units, err = decimal.NewFromString(units); err != nil {
		return rec, fmt.Errorf("corrupt units: %w", err)
	}
	if rec.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return rec, fmt.Errorf("corrupt unit_price: %w", err)
	}
	if rec.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return rec, fmt.Errorf("corrupt total_amount: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0).UTC()

	return rec, nil
}

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

// AccountRepository handles account database operations
type AccountRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sql.DB, log zerolog.Logger) *AccountRepository {
	return &AccountRepository{
		db:  db,
		log: log.With().Str("repo", "account").Logger(),
	}
}

// Create inserts a new account
func (r *AccountRepository) Create(account domain.Account) error {
	query := `
		INSERT INTO accounts (id, wallet_balance, created_at)
		VALUES (?, ?, ?)
	`

	_, err := r.db.Exec(query,
		account.ID,
		account.WalletBalance.String(),
		account.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Info().Str("account_id", account.ID).Msg("Account created")
	return nil
}

// Get retrieves an account by id. Returns nil if no account exists.
func (r *AccountRepository) Get(userID string) (*domain.Account, error) {
	return r.get(r.db, userID)
}

// GetTx retrieves an account within the caller's transaction. Inside the
// purchase atomic unit this is the authoritative balance read: the
// pre-transaction check may have raced with a concurrent debit.
func (r *AccountRepository) GetTx(q Querier, userID string) (*domain.Account, error) {
	return r.get(q, userID)
}

func (r *AccountRepository) get(q Querier, userID string) (*domain.Account, error) {
	query := `SELECT id, wallet_balance, created_at FROM accounts WHERE id = ?`

	var account domain.Account
	var balance string
	var createdAt int64

	err := q.QueryRow(query, userID).Scan(&account.ID, &balance, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.WalletBalance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt wallet balance for account %s: %w", userID, err)
	}
	account.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &account, nil
}

// SetBalanceTx updates an account's wallet balance within the caller's
// transaction. Only the purchase engine may call this; no other component
// writes wallet_balance.
func (r *AccountRepository) SetBalanceTx(q Querier, userID string, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("refusing to set negative balance %s for account %s", balance, userID)
	}

	result, err := q.Exec(`UPDATE accounts SET wallet_balance = ? WHERE id = ?`,
		balance.String(), userID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check balance update: %w", err)
	}
	if affected == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

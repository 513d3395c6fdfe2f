package pricing

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/niveshapp/nivesh/internal/domain"
)

// TTLQuote is how long a cached quote stays valid. Dashboard reads tolerate
// prices up to a few minutes old; the purchase engine never reads the cache.
const TTLQuote = 10 * time.Minute

// cachedQuote is the msgpack wire form of a quote. Decimals travel as
// strings so no precision is lost across the cache boundary.
type cachedQuote struct {
	InstrumentID string `msgpack:"instrument_id"`
	PricePerUnit string `msgpack:"price_per_unit"`
	IsActive     bool   `msgpack:"is_active"`
	FetchedAt    int64  `msgpack:"fetched_at"`
}

// QuoteCache is a persistent TTL cache over the cache database.
type QuoteCache struct {
	db *sql.DB
}

// NewQuoteCache creates a new quote cache
func NewQuoteCache(db *sql.DB) *QuoteCache {
	return &QuoteCache{db: db}
}

// Store saves a quote with expiration = now + TTLQuote
func (c *QuoteCache) Store(quote domain.Quote) error {
	payload := cachedQuote{
		InstrumentID: quote.InstrumentID,
		PricePerUnit: quote.PricePerUnit.String(),
		IsActive:     quote.IsActive,
		FetchedAt:    quote.FetchedAt.Unix(),
	}

	data, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	expiresAt := time.Now().Add(TTLQuote).Unix()

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO instrument_quotes (instrument_id, data, expires_at) VALUES (?, ?, ?)`,
		quote.InstrumentID, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store quote: %w", err)
	}

	return nil
}

// Get retrieves a non-expired quote. Returns (nil, nil) on a cache miss,
// including when the entry exists but has expired.
func (c *QuoteCache) Get(instrumentID string) (*domain.Quote, error) {
	var data []byte

	err := c.db.QueryRow(
		`SELECT data FROM instrument_quotes WHERE instrument_id = ? AND expires_at > ?`,
		instrumentID, time.Now().Unix(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quote cache: %w", err)
	}

	var payload cachedQuote
	if err := msgpack.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached quote: %w", err)
	}

	price, err := decimal.NewFromString(payload.PricePerUnit)
	if err != nil {
		return nil, fmt.Errorf("corrupt cached price: %w", err)
	}

	return &domain.Quote{
		InstrumentID: payload.InstrumentID,
		PricePerUnit: price,
		IsActive:     payload.IsActive,
		FetchedAt:    time.Unix(payload.FetchedAt, 0).UTC(),
	}, nil
}

// DeleteExpired removes all expired quotes and returns how many were deleted
func (c *QuoteCache) DeleteExpired() (int64, error) {
	result, err := c.db.Exec(
		`DELETE FROM instrument_quotes WHERE expires_at <= ?`,
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired quotes: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted quotes: %w", err)
	}

	return deleted, nil
}

package pricing

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshapp/nivesh/internal/domain"
)

func newLedgerTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE instruments (
			id             TEXT PRIMARY KEY,
			symbol         TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL,
			category       TEXT NOT NULL,
			price_per_unit TEXT NOT NULL,
			is_active      INTEGER NOT NULL DEFAULT 1,
			created_at     INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func newCacheTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE instrument_quotes (
			instrument_id TEXT PRIMARY KEY,
			data          BLOB NOT NULL,
			expires_at    INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInstrumentRepository(t *testing.T) {
	db := newLedgerTestDB(t)
	repo := NewInstrumentRepository(db, testLogger())

	require.NoError(t, repo.Create(domain.Instrument{
		ID:           "tcs",
		Symbol:       "TCS",
		Name:         "Tata Consultancy Services",
		Category:     domain.CategoryStock,
		PricePerUnit: dec("3420.50"),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}))

	t.Run("get by id", func(t *testing.T) {
		instrument, err := repo.Get("tcs")
		require.NoError(t, err)
		assert.Equal(t, "TCS", instrument.Symbol)
		assert.True(t, instrument.PricePerUnit.Equal(dec("3420.50")))
		assert.True(t, instrument.IsActive)
	})

	t.Run("get by symbol", func(t *testing.T) {
		instrument, err := repo.GetBySymbol("TCS")
		require.NoError(t, err)
		assert.Equal(t, "tcs", instrument.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Get("missing")
		assert.ErrorIs(t, err, domain.ErrInstrumentNotFound)
	})

	t.Run("non-positive price rejected", func(t *testing.T) {
		err := repo.Create(domain.Instrument{
			ID:           "bad",
			Symbol:       "BAD",
			Name:         "Bad",
			Category:     domain.CategoryStock,
			PricePerUnit: dec("0"),
			IsActive:     true,
			CreatedAt:    time.Now().UTC(),
		})
		assert.Error(t, err)
	})
}

func TestQuoteCache(t *testing.T) {
	cache := NewQuoteCache(newCacheTestDB(t))

	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quote := domain.Quote{
		InstrumentID: "tcs",
		PricePerUnit: dec("3420.50"),
		IsActive:     true,
		FetchedAt:    fetched,
	}

	t.Run("miss returns nil", func(t *testing.T) {
		got, err := cache.Get("tcs")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trip preserves decimal precision", func(t *testing.T) {
		require.NoError(t, cache.Store(quote))

		got, err := cache.Get("tcs")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.PricePerUnit.Equal(dec("3420.50")))
		assert.True(t, got.IsActive)
		assert.True(t, got.FetchedAt.Equal(fetched))
	})

	t.Run("store replaces existing entry", func(t *testing.T) {
		quote.PricePerUnit = dec("3500")
		require.NoError(t, cache.Store(quote))

		got, err := cache.Get("tcs")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.PricePerUnit.Equal(dec("3500")))
	})
}

func TestQuoteCache_Expiry(t *testing.T) {
	db := newCacheTestDB(t)
	cache := NewQuoteCache(db)

	require.NoError(t, cache.Store(domain.Quote{
		InstrumentID: "tcs",
		PricePerUnit: dec("100"),
		FetchedAt:    time.Now().UTC(),
	}))

	// Force the entry into the past
	_, err := db.Exec(`UPDATE instrument_quotes SET expires_at = ? WHERE instrument_id = 'tcs'`,
		time.Now().Add(-time.Minute).Unix())
	require.NoError(t, err)

	got, err := cache.Get("tcs")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries read as a miss")

	deleted, err := cache.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = cache.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestCleanupJob(t *testing.T) {
	db := newCacheTestDB(t)
	cache := NewQuoteCache(db)
	job := NewCleanupJob(cache, testLogger())

	assert.Equal(t, "quote_cache_cleanup", job.Name())

	require.NoError(t, cache.Store(domain.Quote{
		InstrumentID: "stale",
		PricePerUnit: dec("1"),
		FetchedAt:    time.Now().UTC(),
	}))
	_, err := db.Exec(`UPDATE instrument_quotes SET expires_at = 0 WHERE instrument_id = 'stale'`)
	require.NoError(t, err)

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM instrument_quotes`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestService_CacheFirst(t *testing.T) {
	ledgerDB := newLedgerTestDB(t)
	instruments := NewInstrumentRepository(ledgerDB, testLogger())
	cache := NewQuoteCache(newCacheTestDB(t))
	service := NewService(instruments, cache, testLogger())

	require.NoError(t, instruments.Create(domain.Instrument{
		ID:           "tcs",
		Symbol:       "TCS",
		Name:         "Tata Consultancy Services",
		Category:     domain.CategoryStock,
		PricePerUnit: dec("3420.50"),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}))

	// First read misses the cache and populates it
	quote, err := service.GetQuote("tcs")
	require.NoError(t, err)
	assert.True(t, quote.PricePerUnit.Equal(dec("3420.50")))

	cached, err := cache.Get("tcs")
	require.NoError(t, err)
	require.NotNil(t, cached, "lookup populates the cache")

	// Reprice the instrument: cached reads keep serving the old quote
	_, err = ledgerDB.Exec(`UPDATE instruments SET price_per_unit = '9999' WHERE id = 'tcs'`)
	require.NoError(t, err)

	quote, err = service.GetQuote("tcs")
	require.NoError(t, err)
	assert.True(t, quote.PricePerUnit.Equal(dec("3420.50")), "served from cache")

	// The engine-facing lookup bypasses the cache
	instrument, err := service.GetInstrument("tcs")
	require.NoError(t, err)
	assert.True(t, instrument.PricePerUnit.Equal(dec("9999")))
}

func TestService_UnknownInstrument(t *testing.T) {
	instruments := NewInstrumentRepository(newLedgerTestDB(t), testLogger())
	service := NewService(instruments, nil, testLogger())

	_, err := service.GetQuote("missing")
	assert.ErrorIs(t, err, domain.ErrInstrumentNotFound)
}

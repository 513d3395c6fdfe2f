package pricing

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshapp/nivesh/internal/domain"
)

// Service is the pricing source consumed by read-side components. Lookups
// are cache-first; a miss falls through to the instrument repository and
// repopulates the cache. Cache failures degrade to direct reads rather than
// failing the lookup.
type Service struct {
	instruments *InstrumentRepository
	cache       *QuoteCache
	log         zerolog.Logger
}

// NewService creates a new pricing service
func NewService(instruments *InstrumentRepository, cache *QuoteCache, log zerolog.Logger) *Service {
	return &Service{
		instruments: instruments,
		cache:       cache,
		log:         log.With().Str("service", "pricing").Logger(),
	}
}

// GetQuote returns the current quote for an instrument.
// Returns domain.ErrInstrumentNotFound when the instrument does not exist.
func (s *Service) GetQuote(instrumentID string) (*domain.Quote, error) {
	if s.cache != nil {
		quote, err := s.cache.Get(instrumentID)
		if err != nil {
			s.log.Warn().Err(err).Str("instrument_id", instrumentID).Msg("Quote cache read failed")
		} else if quote != nil {
			return quote, nil
		}
	}

	instrument, err := s.instruments.Get(instrumentID)
	if err != nil {
		return nil, err
	}

	quote := &domain.Quote{
		InstrumentID: instrument.ID,
		PricePerUnit: instrument.PricePerUnit,
		IsActive:     instrument.IsActive,
		FetchedAt:    time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Store(*quote); err != nil {
			s.log.Warn().Err(err).Str("instrument_id", instrumentID).Msg("Quote cache write failed")
		}
	}

	return quote, nil
}

// GetInstrument returns the full instrument record, bypassing the cache.
// The purchase engine uses this so the snapshotted price is never stale.
func (s *Service) GetInstrument(instrumentID string) (*domain.Instrument, error) {
	return s.instruments.Get(instrumentID)
}

package pricing

import (
	"github.com/rs/zerolog"
)

// CleanupJob removes expired entries from the quote cache.
// It should be scheduled to run daily.
type CleanupJob struct {
	cache *QuoteCache
	log   zerolog.Logger
}

// NewCleanupJob creates a new quote cache cleanup job
func NewCleanupJob(cache *QuoteCache, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		cache: cache,
		log:   log.With().Str("job", "quote_cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job, removing all expired cache entries
func (j *CleanupJob) Run() error {
	deleted, err := j.cache.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired quotes")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Msg("Cleaned up expired quote cache entries")
	}

	return nil
}

// Name returns the job name for scheduling and logging
func (j *CleanupJob) Name() string {
	return "quote_cache_cleanup"
}

package scheduler

import "github.com/rs/zerolog"

// Purger is a cache that can be emptied
type Purger interface {
	Purge() int
}

// CurveCachePurgeJob empties the bootstrapped-curve cache so stale valuation dates do not accumulate
type CurveCachePurgeJob struct {
	cache Purger
	log   zerolog.Logger
}

// NewCurveCachePurgeJob creates the purge job for cache
func NewCurveCachePurgeJob(cache Purger, log zerolog.Logger) *CurveCachePurgeJob {
	return &CurveCachePurgeJob{
		cache: cache,
		log:   log.With().Str("job", "curve_cache_purge").Logger(),
	}
}

// Name returns the job name
func (j *CurveCachePurgeJob) Name() string {
	return "curve_cache_purge"
}

// Run purges the cache
func (j *CurveCachePurgeJob) Run() error {
	removed := j.cache.Purge()
	j.log.Info().Int("removed", removed).Msg("Purged curve cache")
	return nil
}

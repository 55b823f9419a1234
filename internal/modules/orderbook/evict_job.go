package orderbook

import (
	"time"

	"github.com/rs/zerolog"
)

// EvictJob drops stale books from a MemoryCache so symbols nobody queries
// any more do not accumulate.
type EvictJob struct {
	cache  *MemoryCache
	maxAge time.Duration
	log    zerolog.Logger
}

// NewEvictJob creates the job. maxAge is normally the synthesizer TTL.
func NewEvictJob(cache *MemoryCache, maxAge time.Duration, log zerolog.Logger) *EvictJob {
	return &EvictJob{
		cache:  cache,
		maxAge: maxAge,
		log:    log.With().Str("job", "orderbook_evict").Logger(),
	}
}

// Run evicts expired books.
func (j *EvictJob) Run() error {
	if n := j.cache.Evict(time.Now(), j.maxAge); n > 0 {
		j.log.Debug().Int("evicted", n).Int("remaining", j.cache.Len()).Msg("Evicted stale order books")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *EvictJob) Name() string {
	return "orderbook_evict"
}

package dedup

import (
	"context"
	"sync/atomic"

	"jobscraper/internal/config"
	"jobscraper/pkg/models"
)

// Deduplicator is the narrow interface the orchestrator depends on,
// satisfied by both the in-memory Store and the Redis-backed variant.
type Deduplicator interface {
	CheckJob(ctx context.Context, job *models.RawJob) (duplicate bool, matchedHash string, err error)
	Stats() Stats
}

// memStoreAdapter adapts Store's synchronous, context-free Check to the
// Deduplicator interface.
type memStoreAdapter struct {
	store *Store
}

func (a *memStoreAdapter) CheckJob(_ context.Context, job *models.RawJob) (bool, string, error) {
	dup, hash := a.store.Check(job)
	return dup, hash, nil
}

func (a *memStoreAdapter) Stats() Stats {
	return a.store.Stats()
}

type redisStoreAdapter struct {
	store      *RedisStore
	processed  int64
	duplicates int64
}

func (a *redisStoreAdapter) CheckJob(ctx context.Context, job *models.RawJob) (bool, string, error) {
	seq := atomic.AddInt64(&a.processed, 1)
	dup, hash, err := a.store.Check(ctx, job, seq)
	if err != nil {
		return false, "", err
	}
	if dup {
		atomic.AddInt64(&a.duplicates, 1)
	}
	return dup, hash, nil
}

func (a *redisStoreAdapter) Stats() Stats {
	total := atomic.LoadInt64(&a.processed)
	dupes := atomic.LoadInt64(&a.duplicates)
	return Stats{
		TotalProcessed:  total,
		DuplicatesFound: dupes,
		UniqueKept:      total - dupes,
	}
}

// New builds the deduplicator configured for this run: a Redis-backed
// store when DedupConfig.UseRedis is set (shared across orchestrator
// processes), otherwise the in-memory Store. Redis connection failures
// fall back to the in-memory store rather than failing startup, since
// dedup is a quality improvement, not a correctness requirement.
func New(cfg *config.Config) (Deduplicator, func() error, error) {
	if cfg.Dedup.UseRedis {
		rs, err := NewRedisStore(cfg.Redis, cfg.Dedup)
		if err == nil {
			return &redisStoreAdapter{store: rs}, rs.Close, nil
		}
	}
	store := NewStore(cfg.Dedup)
	return &memStoreAdapter{store: store}, func() error { return nil }, nil
}

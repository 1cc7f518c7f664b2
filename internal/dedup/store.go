package dedup

import (
	"sort"
	"sync"

	"jobscraper/internal/config"
	"jobscraper/pkg/models"
)

// Stats are the deduplicator's running counters.
type Stats struct {
	TotalProcessed int64
	DuplicatesFound int64
	UniqueKept     int64
}

// DedupRate returns duplicates/total, or 0 if nothing has been processed.
func (s Stats) DedupRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.DuplicatesFound) / float64(s.TotalProcessed)
}

// Store holds known fingerprints in memory, keyed by content hash, with
// insertion-order tracking for oldest-N eviction.
type Store struct {
	mu         sync.Mutex
	cfg        config.DedupConfig
	byHash     map[string]models.Fingerprint
	insertSeq  int64
	stats      Stats
}

// NewStore builds an in-memory fingerprint store from configuration.
func NewStore(cfg config.DedupConfig) *Store {
	return &Store{
		cfg:    cfg,
		byHash: make(map[string]models.Fingerprint),
	}
}

func (s *Store) capacity() int {
	if s.cfg.StoreCapacity > 0 {
		return s.cfg.StoreCapacity
	}
	return 10000
}

func (s *Store) evictionBatch() int {
	if s.cfg.EvictionBatch > 0 {
		return s.cfg.EvictionBatch
	}
	return 1000
}

func (s *Store) threshold() float64 {
	if s.cfg.SimilarityThreshold > 0 {
		return s.cfg.SimilarityThreshold
	}
	return 0.85
}

// Check decides whether job is a duplicate against the store, per the
// three-tier rule (exact content hash, exact normalized
// URL, then weighted similarity). A job that is not a duplicate is
// inserted into the store so later jobs can match against it; a
// confirmed duplicate is not inserted, and the original's fingerprint
// remains the representative for its group.
func (s *Store) Check(job *models.RawJob) (duplicate bool, matchedHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalProcessed++

	fp := Compute(job, s.nextSeq())

	if _, ok := s.byHash[fp.ContentHash]; ok {
		s.stats.DuplicatesFound++
		return true, fp.ContentHash
	}

	for hash, existing := range s.byHash {
		if existing.NormalizedURL == fp.NormalizedURL {
			s.stats.DuplicatesFound++
			return true, hash
		}
	}

	threshold := s.threshold()
	for hash, existing := range s.byHash {
		if weightedSimilarity(fp, existing) >= threshold {
			s.stats.DuplicatesFound++
			return true, hash
		}
	}

	s.byHash[fp.ContentHash] = fp
	s.stats.UniqueKept++
	s.evictIfNeeded()
	return false, fp.ContentHash
}

func (s *Store) nextSeq() int64 {
	s.insertSeq++
	return s.insertSeq
}

// evictIfNeeded drops the oldest evictionBatch entries by insertion
// order once the store exceeds capacity. Caller must hold s.mu.
func (s *Store) evictIfNeeded() {
	if len(s.byHash) <= s.capacity() {
		return
	}

	type entry struct {
		hash string
		seq  int64
	}
	entries := make([]entry, 0, len(s.byHash))
	for hash, fp := range s.byHash {
		entries = append(entries, entry{hash: hash, seq: fp.InsertedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	toEvict := s.evictionBatch()
	if toEvict > len(entries) {
		toEvict = len(entries)
	}
	for i := 0; i < toEvict; i++ {
		delete(s.byHash, entries[i].hash)
	}
}

// Stats returns a snapshot of the running counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Size returns the current number of retained fingerprints.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

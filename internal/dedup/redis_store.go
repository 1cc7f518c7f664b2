package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"jobscraper/internal/config"
	"jobscraper/pkg/models"
)

// RedisStore is an alternative fingerprint store backed by Redis, for
// deployments that share dedup state across multiple orchestrator
// processes (DedupConfig.UseRedis). It implements the same exact-match
// tiers as Store but fuzzy similarity is only evaluated against
// fingerprints it can list from its key set, bounded to 500 keys.
type RedisStore struct {
	client    *redis.Client
	cfg       config.DedupConfig
	keyPrefix string
}

// NewRedisStore connects to Redis using the root RedisConfig.
func NewRedisStore(redisCfg config.RedisConfig, dedupCfg config.DedupConfig) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if redisCfg.Password != "" {
		opt.Password = redisCfg.Password
	}
	opt.DB = redisCfg.DB
	opt.DialTimeout = redisCfg.Timeout
	opt.ReadTimeout = redisCfg.Timeout
	opt.WriteTimeout = redisCfg.Timeout

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client:    client,
		cfg:       dedupCfg,
		keyPrefix: "jobscraper:dedup:",
	}, nil
}

func (s *RedisStore) key(hash string) string {
	return s.keyPrefix + hash
}

func (s *RedisStore) urlIndexKey(normalizedURL string) string {
	return s.keyPrefix + "url:" + normalizedURL
}

// Check mirrors Store.Check's three-tier decision, using Redis for exact
// lookups (content hash, normalized URL) in O(1) and falling back to an
// in-process scan over a bounded sample for fuzzy similarity.
func (s *RedisStore) Check(ctx context.Context, job *models.RawJob, insertSeq int64) (bool, string, error) {
	fp := Compute(job, insertSeq)

	exists, err := s.client.Exists(ctx, s.key(fp.ContentHash)).Result()
	if err != nil {
		return false, "", fmt.Errorf("redis exists check failed: %w", err)
	}
	if exists > 0 {
		return true, fp.ContentHash, nil
	}

	urlHash, err := s.client.Get(ctx, s.urlIndexKey(fp.NormalizedURL)).Result()
	if err == nil && urlHash != "" {
		return true, urlHash, nil
	} else if err != nil && err != redis.Nil {
		return false, "", fmt.Errorf("redis url lookup failed: %w", err)
	}

	candidates, err := s.sampleCandidates(ctx)
	if err != nil {
		return false, "", err
	}

	threshold := s.threshold()
	for hash, candidate := range candidates {
		if weightedSimilarity(fp, candidate) >= threshold {
			return true, hash, nil
		}
	}

	if err := s.insert(ctx, fp); err != nil {
		return false, "", err
	}
	return false, fp.ContentHash, nil
}

func (s *RedisStore) threshold() float64 {
	if s.cfg.SimilarityThreshold > 0 {
		return s.cfg.SimilarityThreshold
	}
	return 0.85
}

func (s *RedisStore) insert(ctx context.Context, fp models.Fingerprint) error {
	payload, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprint: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(fp.ContentHash), payload, 7*24*time.Hour)
	pipe.Set(ctx, s.urlIndexKey(fp.NormalizedURL), fp.ContentHash, 7*24*time.Hour)
	_, err = pipe.Exec(ctx)
	return err
}

// sampleCandidates scans up to 500 stored fingerprints for the fuzzy
// similarity pass. A full unbounded scan is avoided deliberately: the
// in-memory Store is the right choice when exhaustive fuzzy matching
// against the whole corpus matters.
func (s *RedisStore) sampleCandidates(ctx context.Context) (map[string]models.Fingerprint, error) {
	out := make(map[string]models.Fingerprint)
	var cursor uint64
	scanned := 0

	for scanned < 500 {
		// Hash keys are hex, so excluding a leading "u" skips exactly
		// the "url:" index keys.
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPrefix+"[^u]*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan failed: %w", err)
		}
		for _, k := range keys {
			raw, err := s.client.Get(ctx, k).Result()
			if err != nil {
				continue
			}
			var fp models.Fingerprint
			if json.Unmarshal([]byte(raw), &fp) == nil {
				out[fp.ContentHash] = fp
			}
			scanned++
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

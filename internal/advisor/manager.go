package advisor

import (
	"context"
	"sync"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

// cacheEntry holds a cached board analysis with its expiry.
type cacheEntry struct {
	analysis *BoardAnalysis
	expires  time.Time
}

// Manager is the advisor oracle gateway used by the rest of the system
// of the orchestrator. It wraps a Provider with:
//   - a per-board cache of AnalyzeBoard results (CacheTTL, default 24h)
//   - a hard deadline on every call (Timeout, default 30s)
//   - confidence gating: any result below MinConfidence is treated the
//     same as a provider error and resolves to the deterministic fallback
//
// The rest of the system never talks to a Provider directly, and never
// blocks indefinitely on the advisor.
type Manager struct {
	provider Provider
	cfg      *config.AdvisorConfig
	logger   logging.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewManager builds an advisor gateway. provider may be nil, in which case
// every call resolves directly to the deterministic fallback (useful when
// no API key is configured).
func NewManager(provider Provider, cfg *config.AdvisorConfig, logger logging.Logger) *Manager {
	return &Manager{
		provider: provider,
		cfg:      cfg,
		logger:   logger.WithField("component", "advisor.manager"),
		cache:    make(map[string]cacheEntry),
	}
}

func (m *Manager) timeout() time.Duration {
	if m.cfg != nil && m.cfg.Timeout > 0 {
		return m.cfg.Timeout
	}
	return 30 * time.Second
}

func (m *Manager) minConfidence() float64 {
	if m.cfg != nil && m.cfg.MinConfidence > 0 {
		return m.cfg.MinConfidence
	}
	return 0.5
}

func (m *Manager) cacheTTL() time.Duration {
	if m.cfg != nil && m.cfg.CacheTTL > 0 {
		return m.cfg.CacheTTL
	}
	return 24 * time.Hour
}

// Analyze returns a board analysis, preferring a fresh cache entry, then
// the provider (deadline-bound, confidence-gated), and finally the
// deterministic fallback.
func (m *Manager) Analyze(ctx context.Context, board *models.JobBoard, htmlSample string) *BoardAnalysis {
	if cached, ok := m.cached(board.ID); ok {
		return cached
	}

	if m.provider == nil {
		m.logger.Debug("advisor provider not configured, using fallback", map[string]interface{}{"board_id": board.ID})
		return Fallback(board)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()

	analysis, err := m.provider.AnalyzeBoard(callCtx, board.BaseURL, htmlSample)
	if err != nil {
		m.logger.Warn("advisor analysis failed, using fallback", map[string]interface{}{
			"board_id": board.ID,
			"error":    err.Error(),
		})
		return Fallback(board)
	}

	if analysis.Confidence < m.minConfidence() {
		m.logger.Info("advisor analysis below confidence floor, using fallback", map[string]interface{}{
			"board_id":   board.ID,
			"confidence": analysis.Confidence,
			"floor":      m.minConfidence(),
		})
		return Fallback(board)
	}

	m.store(board.ID, analysis)
	return analysis
}

func (m *Manager) cached(boardID string) (*BoardAnalysis, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[boardID]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.analysis, true
}

func (m *Manager) store(boardID string, analysis *BoardAnalysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[boardID] = cacheEntry{analysis: analysis, expires: time.Now().Add(m.cacheTTL())}
}

// Invalidate drops any cached analysis for a board, forcing the next
// Analyze call to consult the provider again.
func (m *Manager) Invalidate(boardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, boardID)
}

// HasProvider reports whether a real provider is configured; without
// one, every Analyze call resolves to the fallback and an HTML sample
// would go unused.
func (m *Manager) HasProvider() bool {
	return m.provider != nil
}

// HasFreshAnalysis reports whether a cached analysis for the board is
// still within its TTL, meaning the next Analyze call will not consult
// the provider and needs no HTML sample.
func (m *Manager) HasFreshAnalysis(boardID string) bool {
	_, ok := m.cached(boardID)
	return ok
}

// ValidateContent delegates to the provider, returning nil when the
// provider is unavailable or errors.
func (m *Manager) ValidateContent(ctx context.Context, job *models.RawJob) *ContentValidation {
	if m.provider == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()
	result, err := m.provider.ValidateContent(callCtx, job)
	if err != nil {
		m.logger.Debug("advisor content validation failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return result
}

// OptimizeParameters delegates to the provider, returning nil when
// unavailable so callers keep their current tuning.
func (m *Manager) OptimizeParameters(ctx context.Context, perf PerformanceData) *ParameterRecommendation {
	if m.provider == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()
	result, err := m.provider.OptimizeParameters(callCtx, perf)
	if err != nil {
		m.logger.Debug("advisor parameter optimization failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return result
}

// IsHealthy reports whether the underlying provider is reachable.
// A nil provider is reported healthy-false without attempting a call.
func (m *Manager) IsHealthy(ctx context.Context) bool {
	if m.provider == nil {
		return false
	}
	callCtx, cancel := context.WithTimeout(ctx, m.timeout())
	defer cancel()
	return m.provider.IsHealthy(callCtx) == nil
}

// Package advisor wraps the external AI advisor oracle: given a
// board URL and an HTML sample, it recommends an engine, selectors, and
// rate-limit parameters. The core never blocks indefinitely on it: every
// call carries a deadline, and every failure mode resolves to the
// deterministic fallback.
package advisor

import (
	"context"
	"time"

	"jobscraper/pkg/models"
)

// BoardAnalysis is the result of AnalyzeBoard.
type BoardAnalysis struct {
	RecommendedEngine       models.Engine     `json:"recommended_engine"`
	Complexity              float64           `json:"complexity"`
	Selectors               models.SelectorMap `json:"selectors"`
	AntiBotMeasures         []string          `json:"anti_bot_measures"`
	RateLimitRecommendation float64           `json:"rate_limit_recommendation_rpm"`
	RequiresJS              bool              `json:"requires_js"`
	Confidence              float64           `json:"confidence"`
}

// ContentValidation is the result of ValidateContent.
type ContentValidation struct {
	Quality           float64  `json:"quality"`
	Completeness      float64  `json:"completeness"`
	Relevance         float64  `json:"relevance"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
	IsDuplicateLikely bool     `json:"is_duplicate_likely"`
}

// ParameterRecommendation is the result of OptimizeParameters.
type ParameterRecommendation struct {
	Delay       time.Duration `json:"delay"`
	Concurrency int           `json:"concurrency"`
	Timeout     time.Duration `json:"timeout"`
	UAStrategy  string        `json:"ua_strategy"`
	UseProxy    bool          `json:"use_proxy"`
	Notes       []string      `json:"notes"`
}

// PerformanceData summarizes recent engine/board behavior, fed to
// OptimizeParameters.
type PerformanceData struct {
	SuccessRate     float64
	AvgResponseTime time.Duration
	ErrorRate       float64
	BlockedCount    int
}

// Provider is the external AI advisor contract. Implementations
// must be safe for concurrent use.
type Provider interface {
	AnalyzeBoard(ctx context.Context, baseURL, htmlSample string) (*BoardAnalysis, error)
	GenerateSelectors(ctx context.Context, html, boardName string) (models.SelectorMap, error)
	ValidateContent(ctx context.Context, job *models.RawJob) (*ContentValidation, error)
	DetectAntiBot(ctx context.Context, html string, responseHeaders map[string]string) ([]string, error)
	OptimizeParameters(ctx context.Context, perf PerformanceData) (*ParameterRecommendation, error)
	IsHealthy(ctx context.Context) error
	Name() string
}

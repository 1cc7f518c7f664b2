package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

type fakeProvider struct {
	analysis    *BoardAnalysis
	analyzeErr  error
	analyzeCalls int
	healthErr   error
}

func (p *fakeProvider) AnalyzeBoard(ctx context.Context, baseURL, htmlSample string) (*BoardAnalysis, error) {
	p.analyzeCalls++
	if p.analyzeErr != nil {
		return nil, p.analyzeErr
	}
	return p.analysis, nil
}

func (p *fakeProvider) GenerateSelectors(ctx context.Context, html, boardName string) (models.SelectorMap, error) {
	return nil, nil
}

func (p *fakeProvider) ValidateContent(ctx context.Context, job *models.RawJob) (*ContentValidation, error) {
	return &ContentValidation{Quality: 0.9}, nil
}

func (p *fakeProvider) DetectAntiBot(ctx context.Context, html string, responseHeaders map[string]string) ([]string, error) {
	return nil, nil
}

func (p *fakeProvider) OptimizeParameters(ctx context.Context, perf PerformanceData) (*ParameterRecommendation, error) {
	return &ParameterRecommendation{Concurrency: 2}, nil
}

func (p *fakeProvider) IsHealthy(ctx context.Context) error { return p.healthErr }
func (p *fakeProvider) Name() string                        { return "fake" }

func testManagerConfig() *config.AdvisorConfig {
	return &config.AdvisorConfig{Timeout: time.Second, MinConfidence: 0.6, CacheTTL: time.Hour}
}

func TestAnalyzeWithNilProviderUsesFallback(t *testing.T) {
	board := &models.JobBoard{ID: "board-1", BaseURL: "https://example.com"}
	m := NewManager(nil, testManagerConfig(), logging.NewMultiLogger())

	result := m.Analyze(context.Background(), board, "")
	if result.RecommendedEngine != models.EngineStatic {
		t.Errorf("expected fallback to recommend static engine, got %q", result.RecommendedEngine)
	}
	if result.Confidence != 0 {
		t.Errorf("expected fallback confidence 0, got %v", result.Confidence)
	}
}

func TestAnalyzeFallsBackWhenConfidenceBelowFloor(t *testing.T) {
	board := &models.JobBoard{ID: "board-1"}
	provider := &fakeProvider{analysis: &BoardAnalysis{RecommendedEngine: models.EngineBrowser, Confidence: 0.2}}
	m := NewManager(provider, testManagerConfig(), logging.NewMultiLogger())

	result := m.Analyze(context.Background(), board, "")
	if result.RecommendedEngine != models.EngineStatic {
		t.Errorf("expected low-confidence analysis to resolve to fallback (static), got %q", result.RecommendedEngine)
	}
}

func TestAnalyzeFallsBackOnProviderError(t *testing.T) {
	board := &models.JobBoard{ID: "board-1"}
	provider := &fakeProvider{analyzeErr: errors.New("rate limited")}
	m := NewManager(provider, testManagerConfig(), logging.NewMultiLogger())

	result := m.Analyze(context.Background(), board, "")
	if result.Confidence != 0 {
		t.Errorf("expected fallback on provider error, got confidence %v", result.Confidence)
	}
}

func TestAnalyzeUsesProviderResultAboveConfidenceFloor(t *testing.T) {
	board := &models.JobBoard{ID: "board-1"}
	provider := &fakeProvider{analysis: &BoardAnalysis{RecommendedEngine: models.EngineBrowser, Confidence: 0.9}}
	m := NewManager(provider, testManagerConfig(), logging.NewMultiLogger())

	result := m.Analyze(context.Background(), board, "")
	if result.RecommendedEngine != models.EngineBrowser {
		t.Errorf("expected provider's recommendation to be used, got %q", result.RecommendedEngine)
	}
}

func TestAnalyzeCachesSuccessfulResult(t *testing.T) {
	board := &models.JobBoard{ID: "board-1"}
	provider := &fakeProvider{analysis: &BoardAnalysis{RecommendedEngine: models.EngineBrowser, Confidence: 0.9}}
	m := NewManager(provider, testManagerConfig(), logging.NewMultiLogger())

	m.Analyze(context.Background(), board, "")
	m.Analyze(context.Background(), board, "")

	if provider.analyzeCalls != 1 {
		t.Errorf("expected provider to be called once with caching, got %d calls", provider.analyzeCalls)
	}
}

func TestInvalidateForcesReanalysis(t *testing.T) {
	board := &models.JobBoard{ID: "board-1"}
	provider := &fakeProvider{analysis: &BoardAnalysis{RecommendedEngine: models.EngineBrowser, Confidence: 0.9}}
	m := NewManager(provider, testManagerConfig(), logging.NewMultiLogger())

	m.Analyze(context.Background(), board, "")
	m.Invalidate(board.ID)
	m.Analyze(context.Background(), board, "")

	if provider.analyzeCalls != 2 {
		t.Errorf("expected invalidation to force a second provider call, got %d calls", provider.analyzeCalls)
	}
}

func TestValidateContentReturnsNilWithoutProvider(t *testing.T) {
	m := NewManager(nil, testManagerConfig(), logging.NewMultiLogger())
	if got := m.ValidateContent(context.Background(), &models.RawJob{}); got != nil {
		t.Errorf("expected nil content validation without a provider, got %v", got)
	}
}

func TestIsHealthyFalseWithoutProvider(t *testing.T) {
	m := NewManager(nil, testManagerConfig(), logging.NewMultiLogger())
	if m.IsHealthy(context.Background()) {
		t.Error("expected a nil provider to report unhealthy")
	}
}

func TestIsHealthyReflectsProviderError(t *testing.T) {
	provider := &fakeProvider{healthErr: errors.New("unreachable")}
	m := NewManager(provider, testManagerConfig(), logging.NewMultiLogger())
	if m.IsHealthy(context.Background()) {
		t.Error("expected IsHealthy to report false when the provider errors")
	}
}

func TestFallbackRecommendsBrowserWhenBoardRequiresJS(t *testing.T) {
	board := &models.JobBoard{ID: "board-1", Flags: models.BoardFlags{RequiresJS: true}}
	result := Fallback(board)
	if result.RecommendedEngine != models.EngineBrowser {
		t.Errorf("expected fallback to recommend browser engine for a JS-requiring board, got %q", result.RecommendedEngine)
	}
}

func TestFallbackRecommendsStaticByDefault(t *testing.T) {
	board := &models.JobBoard{ID: "board-1"}
	result := Fallback(board)
	if result.RecommendedEngine != models.EngineStatic {
		t.Errorf("expected fallback to recommend static engine by default, got %q", result.RecommendedEngine)
	}
}

package orchestrator

import (
	"context"
	"testing"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/dedup"
	"jobscraper/internal/enrich"
	"jobscraper/internal/engine"
	"jobscraper/internal/logging"
	"jobscraper/internal/persistence"
	"jobscraper/internal/ratelimit"
	"jobscraper/internal/router"
	"jobscraper/internal/telemetry"
	"jobscraper/internal/validate"
	"jobscraper/pkg/models"
)

type fakeAdapter struct {
	name models.Engine
	urls []string
	jobs map[string]*models.RawJob
}

func (a *fakeAdapter) Probe(ctx context.Context, url string) bool { return true }

func (a *fakeAdapter) ListJobs(ctx context.Context, board *models.JobBoard, query, location string, maxPages int) ([]string, int, error) {
	return a.urls, 1, nil
}

func (a *fakeAdapter) ExtractJob(ctx context.Context, board *models.JobBoard, url string, selectors models.SelectorMap) (*models.RawJob, error) {
	return a.jobs[url], nil
}

func (a *fakeAdapter) Close() error        { return nil }
func (a *fakeAdapter) Name() models.Engine { return a.name }

type fakeFactory struct{ adapter *fakeAdapter }

func (f *fakeFactory) Build(eng models.Engine) (engine.Adapter, error) {
	return f.adapter, nil
}

func testOrchestrator(t *testing.T, adapter *fakeAdapter, repo persistence.Repository) *Orchestrator {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	cfg.RateLimit.BaselineDelay = time.Millisecond
	cfg.RateLimit.CeilingDelay = 10 * time.Millisecond
	cfg.RateLimit.CooldownWindow = time.Minute

	logger := logging.NewMultiLogger()
	tel := telemetry.New(cfg, nil, logger)
	rtr := router.New(&fakeFactory{adapter: adapter}, nil, tel, logger)
	limiter := ratelimit.New(cfg.RateLimit, logger)
	dedupStore, _, err := dedup.New(cfg)
	if err != nil {
		t.Fatalf("dedup.New: %v", err)
	}
	validator := validate.New()
	enricher := enrich.New()

	return New(cfg, repo, rtr, limiter, dedupStore, validator, enricher, nil, tel, logger)
}

func jobBoard() *models.JobBoard {
	return &models.JobBoard{
		ID:      "board-1",
		Name:    "Example Board",
		BaseURL: "https://example.com",
	}
}

// TestRunHappyPathPersistsAndReturnsSuccess approximates the feed happy
// path scenario: a single valid, unique job is scraped, validated,
// enriched, and persisted, and the result reports success.
func TestRunHappyPathPersistsAndReturnsSuccess(t *testing.T) {
	repo := persistence.NewMemory()
	repo.UpsertJobBoard(context.Background(), jobBoard())

	adapter := &fakeAdapter{
		name: models.EngineStatic,
		urls: []string{"https://example.com/jobs/1"},
		jobs: map[string]*models.RawJob{
			"https://example.com/jobs/1": {
				Title:       "Senior Backend Engineer",
				Company:     "Acme Technology Inc",
				Location:    "Austin, TX",
				Description: "We are looking for a talented software engineer to join our growing team and build great products for customers worldwide.",
				URL:         "https://example.com/jobs/1",
				BoardID:     "board-1",
				FetchedAt:   time.Now(),
			},
		},
	}

	orch := testOrchestrator(t, adapter, repo)
	task := &models.ScrapeTask{BoardID: "board-1", MaxPages: 1, MaxJobs: 10}

	result, err := orch.Run(context.Background(), task)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != models.ResultSuccess {
		t.Errorf("expected success status, got %q", result.Status)
	}
	if result.Found != 1 {
		t.Errorf("expected one job found, got %d", result.Found)
	}
	if result.EngineUsed != models.EngineStatic {
		t.Errorf("expected static engine used, got %q", result.EngineUsed)
	}
	if result.PagesScraped != 1 {
		t.Errorf("expected one page scraped, got %d", result.PagesScraped)
	}

	sessions, err := repo.ReadRecentSessions(context.Background(), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReadRecentSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session recorded, got %d", len(sessions))
	}
	if sessions[0].Status != models.ResultSuccess {
		t.Errorf("expected recorded session status success, got %q", sessions[0].Status)
	}
}

// TestRunUnknownBoardFails covers the resolveBoard error path.
func TestRunUnknownBoardFails(t *testing.T) {
	repo := persistence.NewMemory()
	adapter := &fakeAdapter{name: models.EngineStatic}
	orch := testOrchestrator(t, adapter, repo)

	_, err := orch.Run(context.Background(), &models.ScrapeTask{BoardID: "no-such-board"})
	if err == nil {
		t.Fatal("expected an error for an unknown board id")
	}
}

// TestRunSecondPassMarksDuplicate exercises dedup across two runs of the
// same job content, confirming the second run's record is flagged as a
// duplicate and excluded from persistence.
func TestRunSecondPassMarksDuplicate(t *testing.T) {
	repo := persistence.NewMemory()
	repo.UpsertJobBoard(context.Background(), jobBoard())

	job := &models.RawJob{
		Title:       "Senior Backend Engineer",
		Company:     "Acme Technology Inc",
		Location:    "Austin, TX",
		Description: "We are looking for a talented software engineer to join our growing team and build great products for customers worldwide.",
		URL:         "https://example.com/jobs/1",
		BoardID:     "board-1",
		FetchedAt:   time.Now(),
	}
	adapter := &fakeAdapter{
		name: models.EngineStatic,
		urls: []string{"https://example.com/jobs/1"},
		jobs: map[string]*models.RawJob{"https://example.com/jobs/1": job},
	}

	orch := testOrchestrator(t, adapter, repo)
	task := func() *models.ScrapeTask { return &models.ScrapeTask{BoardID: "board-1", MaxPages: 1, MaxJobs: 10} }

	first, err := orch.Run(context.Background(), task())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Status != models.ResultSuccess {
		t.Fatalf("expected first run to succeed, got %q", first.Status)
	}

	second, err := orch.Run(context.Background(), task())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	// The duplicate-flagged job is still "found" by the engine but is
	// excluded from persistence and downgraded to partial, since no
	// valid non-duplicate record survived the pipeline.
	if second.Status != models.ResultPartial {
		t.Errorf("expected second run (all duplicates) to report partial, got %q", second.Status)
	}
}

// TestRunReportsRepeatedListingURLAsDuplicate feeds a listing that emits
// the same detail URL twice in one run. The repeat reaches the
// deduplicator, which flags it: all three extractions are found, but
// only the two distinct jobs are persisted and the run is downgraded to
// partial.
func TestRunReportsRepeatedListingURLAsDuplicate(t *testing.T) {
	repo := persistence.NewMemory()
	repo.UpsertJobBoard(context.Background(), jobBoard())

	jobA := &models.RawJob{
		Title:       "Senior Backend Engineer",
		Company:     "Acme Technology Inc",
		Location:    "Austin, TX",
		Description: "We are looking for a talented software engineer to join our growing team and build great products for customers worldwide.",
		URL:         "https://example.com/jobs/1",
		BoardID:     "board-1",
		FetchedAt:   time.Now(),
	}
	jobB := &models.RawJob{
		Title:       "Staff Site Reliability Engineer",
		Company:     "Globex Incorporated",
		Location:    "Berlin",
		Description: "Operate and scale our production platform, own incident response, and improve reliability tooling across every service we run.",
		URL:         "https://example.com/jobs/2",
		BoardID:     "board-1",
		FetchedAt:   time.Now(),
	}

	adapter := &fakeAdapter{
		name: models.EngineStatic,
		urls: []string{"https://example.com/jobs/1", "https://example.com/jobs/2", "https://example.com/jobs/1"},
		jobs: map[string]*models.RawJob{
			"https://example.com/jobs/1": jobA,
			"https://example.com/jobs/2": jobB,
		},
	}

	orch := testOrchestrator(t, adapter, repo)
	task := &models.ScrapeTask{BoardID: "board-1", MaxPages: 2, MaxJobs: 10}

	result, err := orch.Run(context.Background(), task)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Found != 3 {
		t.Errorf("expected all 3 extractions found (duplicate included), got %d", result.Found)
	}
	if result.Status != models.ResultPartial {
		t.Errorf("expected partial status when one record is a duplicate, got %q", result.Status)
	}
	if got := repo.RawJobCount(); got != 2 {
		t.Errorf("expected only the 2 distinct jobs persisted, got %d", got)
	}
}

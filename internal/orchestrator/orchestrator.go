// Package orchestrator composes the rate limiter, router, dedup,
// validate, enrich, persistence, and telemetry packages into the single
// per-task pipeline, implementing
// internal/queue.Orchestrator so the scheduler can drive it.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"jobscraper/internal/advisor"
	"jobscraper/internal/config"
	"jobscraper/internal/dedup"
	"jobscraper/internal/enrich"
	"jobscraper/internal/logging"
	"jobscraper/internal/persistence"
	"jobscraper/internal/ratelimit"
	"jobscraper/internal/router"
	"jobscraper/internal/telemetry"
	"jobscraper/internal/validate"
	"jobscraper/pkg/models"
	"jobscraper/pkg/utils"
)

// Orchestrator runs one ScrapeTask end to end: resolve the board,
// acquire a rate-limit slot, route the scrape across engines, and push
// every extracted job through dedup -> validate -> enrich before
// handing the batch to persistence.
type Orchestrator struct {
	cfg        *config.Config
	repo       persistence.Repository
	router     *router.Router
	limiter    *ratelimit.Limiter
	dedup      dedup.Deduplicator
	validator  *validate.Validator
	enricher   *enrich.Enricher
	advisor    *advisor.Manager
	telemetry  *telemetry.Recorder
	httpClient *http.Client
	logger     logging.Logger
}

// New builds an Orchestrator from its already-constructed collaborators.
// advisorMgr may be nil, in which case no HTML samples are fetched and
// the router's advisor tier resolves to its deterministic fallback.
func New(cfg *config.Config, repo persistence.Repository, rtr *router.Router, limiter *ratelimit.Limiter,
	dedupStore dedup.Deduplicator, validator *validate.Validator, enricher *enrich.Enricher,
	advisorMgr *advisor.Manager, tel *telemetry.Recorder, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		repo:       repo,
		router:     rtr,
		limiter:    limiter,
		dedup:      dedupStore,
		validator:  validator,
		enricher:   enricher,
		advisor:    advisorMgr,
		telemetry:  tel,
		httpClient: &http.Client{Timeout: cfg.Engines.RequestTimeout},
		logger:     logger.WithField("component", "orchestrator"),
	}
}

// Run implements queue.Orchestrator.
func (o *Orchestrator) Run(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
	start := time.Now()

	board, err := o.resolveBoard(ctx, task.BoardID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	release, err := o.limiter.AcquireSlot(ctx, board.Host())
	if err != nil {
		return nil, err
	}
	defer release()

	if err := o.limiter.Acquire(ctx, board.Host()); err != nil {
		return nil, err
	}

	maxPages := task.MaxPages
	if maxPages <= 0 {
		maxPages = o.cfg.Engines.MaxPagesPerRun
	}

	htmlSample := o.advisorSample(ctx, board)

	best, history, err := o.router.Run(ctx, board, task.Query, task.Location, maxPages, task.MaxJobs, htmlSample)
	if err != nil {
		return nil, err
	}
	o.applyRateLimitFeedback(board.Host(), history)

	if ctx.Err() != nil {
		return &models.ScrapeResult{Status: models.ResultCancelled, EngineUsed: best.Engine, Duration: time.Since(start)}, ctx.Err()
	}

	records, errCount := o.processJobs(ctx, best.Jobs)

	result := &models.ScrapeResult{
		Status:       resultStatus(best, records),
		Found:        len(records),
		Errors:       errCount,
		Duration:     time.Since(start),
		EngineUsed:   best.Engine,
		PagesScraped: best.PagesScraped,
	}
	for _, rec := range records {
		result.Jobs = append(result.Jobs, rec.Job)
	}

	if err := o.persist(ctx, task, result, records); err != nil {
		o.logger.Warn("failed to persist scrape results", map[string]interface{}{
			"board_id": board.ID,
			"error":    err.Error(),
		})
	}

	o.updateBoardPerformance(ctx, board, result)

	return result, nil
}

func (o *Orchestrator) resolveBoard(ctx context.Context, boardID string) (*models.JobBoard, error) {
	boards, err := o.repo.LoadJobBoards(ctx, models.BoardFilter{})
	if err != nil {
		return nil, fmt.Errorf("load job boards: %w", err)
	}
	for i := range boards {
		if boards[i].ID == boardID {
			return &boards[i], nil
		}
	}
	return nil, utils.NewConfigurationError(fmt.Sprintf("unknown board %q", boardID))
}

// advisorSample fetches a bounded HTML sample of the board's listing
// page for the advisor's engine/selector analysis. Skipped when no
// provider is configured or a fresh cached analysis exists, so the
// extra request is only paid when the provider will actually be
// consulted. The fetch runs after the rate-limit acquisition for this
// host. A fetch failure degrades to an empty sample, which the advisor
// gateway resolves to its deterministic fallback.
func (o *Orchestrator) advisorSample(ctx context.Context, board *models.JobBoard) string {
	if o.advisor == nil || !o.advisor.HasProvider() || o.advisor.HasFreshAnalysis(board.ID) {
		return ""
	}

	sample, err := advisor.FetchSample(ctx, o.httpClient, board.BaseURL, o.cfg.Advisor.HTMLSampleBytes)
	if err != nil {
		o.logger.Debug("advisor sample fetch failed", map[string]interface{}{
			"board_id": board.ID,
			"error":    err.Error(),
		})
		return ""
	}
	return sample
}

// applyRateLimitFeedback reports every rate-limited attempt in history
// to the limiter so the host's effective delay widens before the next
// task, even when a later engine in the fallback sequence succeeded.
func (o *Orchestrator) applyRateLimitFeedback(host string, history []router.Attempt) {
	for _, attempt := range history {
		if kind, ok := utils.KindOf(attempt.Err); ok && kind == utils.ErrKindRateLimited {
			o.limiter.ReportRateLimited(host)
		}
	}
}

// processJobs runs dedup -> validate -> enrich over each extracted job,
// stopping early if ctx is cancelled between jobs.
func (o *Orchestrator) processJobs(ctx context.Context, jobs []models.RawJob) ([]models.CompositeRecord, int) {
	records := make([]models.CompositeRecord, 0, len(jobs))
	errCount := 0

	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		job := jobs[i]

		dup, _, err := o.dedup.CheckJob(ctx, &job)
		if err != nil {
			o.logger.Warn("dedup check failed", map[string]interface{}{"url": job.URL, "error": err.Error()})
			errCount++
			continue
		}

		if ctx.Err() != nil {
			break
		}

		validation := o.validator.Validate(&job, dup)
		if o.telemetry != nil {
			o.telemetry.RecordQualityScore(job.BoardID, validation.QualityScore)
		}

		enrichment := o.enricher.Enrich(&job)

		records = append(records, models.CompositeRecord{
			Job:        job,
			Validation: *validation,
			Enrichment: enrichment,
			Duplicate:  dup,
		})
	}

	return records, errCount
}

func (o *Orchestrator) persist(ctx context.Context, task *models.ScrapeTask, result *models.ScrapeResult, records []models.CompositeRecord) error {
	keep := make([]models.RawJob, 0, len(records))
	for _, rec := range records {
		if rec.Duplicate || !rec.Validation.IsValid {
			continue
		}
		keep = append(keep, rec.Job)
	}

	if len(keep) > 0 {
		if err := o.repo.SaveRawJobs(ctx, keep); err != nil {
			return fmt.Errorf("save raw jobs: %w", err)
		}
	}

	if err := o.repo.SaveSession(ctx, task, result); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// updateBoardPerformance reports this run's outcome back to the
// persistence layer's diagnostic success-rate/avg-response-time
// columns, the Supplemented-features feedback loop that closes the
// board-management lifecycle the distilled spec left as a one-way
// configuration API. JobBoard carries no cached prior average (those
// columns are write-only reporting fields, reconstructed properly from
// session history by ListTopBoards), so this reports the run's own
// observation rather than blending against a value we don't have.
func (o *Orchestrator) updateBoardPerformance(ctx context.Context, board *models.JobBoard, result *models.ScrapeResult) {
	successRate := 0.0
	if result.Status == models.ResultSuccess || result.Status == models.ResultPartial {
		successRate = 1.0
	}

	if err := o.repo.UpdateBoardMetrics(ctx, board.ID, successRate, result.Duration.Seconds()); err != nil {
		o.logger.Warn("failed to update board metrics", map[string]interface{}{
			"board_id": board.ID,
			"error":    err.Error(),
		})
	}
}

// resultStatus derives the terminal ScrapeResult status from the
// winning attempt's error (if any) and how many valid, non-duplicate
// records survived the pipeline.
func resultStatus(best *router.Attempt, records []models.CompositeRecord) models.ResultStatus {
	if best.Err != nil {
		if kind, ok := utils.KindOf(best.Err); ok {
			switch kind {
			case utils.ErrKindRateLimited:
				return models.ResultRateLimited
			case utils.ErrKindBlocked:
				return models.ResultBlocked
			case utils.ErrKindTransientNetwork:
				return models.ResultTimeout
			}
		}
		return models.ResultFailed
	}

	valid := 0
	for _, rec := range records {
		if !rec.Duplicate && rec.Validation.IsValid {
			valid++
		}
	}
	switch {
	case valid == 0 && len(records) > 0:
		return models.ResultPartial
	case valid == 0:
		return models.ResultFailed
	case valid < len(records):
		return models.ResultPartial
	default:
		return models.ResultSuccess
	}
}

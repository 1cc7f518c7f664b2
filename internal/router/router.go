// Package router implements the engine router: it picks an
// initial engine per board (explicit hint, then cached advisor
// recommendation, then browser for requires_js boards, else static),
// executes a scrape attempt,
// and on failure retries with an alternate engine from the fixed
// static -> browser -> feed fallback sequence.
package router

import (
	"context"
	"time"

	"jobscraper/internal/advisor"
	"jobscraper/internal/engine"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
	"jobscraper/pkg/utils"
)

// Telemetry is the narrow outcome-recording surface the router needs;
// satisfied by internal/telemetry.Recorder.
type Telemetry interface {
	RecordEngineOutcome(board string, eng models.Engine, success bool, duration time.Duration, jobsFound int, errKind string)
	RecordAdvisorAnalysis(board string, duration time.Duration)
}

// fallbackSequence is the fixed engine trial order.
var fallbackSequence = []models.Engine{models.EngineStatic, models.EngineBrowser, models.EngineFeed}

// Router selects and drives engine adapters for a board.
type Router struct {
	factory   engine.Factory
	advisor   *advisor.Manager
	telemetry Telemetry
	logger    logging.Logger
}

// New builds a Router. factory constructs Adapter instances on demand;
// advisorMgr may be nil, in which case the advisor tier of the selection
// order is skipped: a board with no explicit hint starts on the browser
// engine when it requires JS, and on static otherwise.
func New(factory engine.Factory, advisorMgr *advisor.Manager, telemetry Telemetry, logger logging.Logger) *Router {
	return &Router{
		factory:   factory,
		advisor:   advisorMgr,
		telemetry: telemetry,
		logger:    logger.WithField("component", "router"),
	}
}

// Attempt is the outcome of running one engine against a board.
type Attempt struct {
	Engine       models.Engine
	Jobs         []models.RawJob
	PagesScraped int
	Err          error
}

// Run executes a scrape for board/task, trying engines in order until
// one produces jobs or all have been exhausted. It honors ctx
// cancellation between engine attempts and between listing/extraction
// steps within an attempt.
func (r *Router) Run(ctx context.Context, board *models.JobBoard, query, location string, maxPages, maxJobs int, htmlSampleForAdvisor string) (*Attempt, []Attempt, error) {
	order := r.selectionOrder(ctx, board, htmlSampleForAdvisor)

	var history []Attempt
	for _, eng := range order {
		if ctx.Err() != nil {
			return nil, history, ctx.Err()
		}

		attempt := r.tryEngine(ctx, eng, board, query, location, maxPages, maxJobs, htmlSampleForAdvisor)
		history = append(history, attempt)

		if attempt.Err == nil && len(attempt.Jobs) > 0 {
			return &attempt, history, nil
		}
	}

	last := history[len(history)-1]
	return &last, history, nil
}

// selectionOrder builds the ordered list of engines to try: the chosen
// initial engine first, then the remaining members of fallbackSequence.
func (r *Router) selectionOrder(ctx context.Context, board *models.JobBoard, htmlSample string) []models.Engine {
	initial := r.initialEngine(ctx, board, htmlSample)

	order := []models.Engine{initial}
	for _, eng := range fallbackSequence {
		if eng != initial {
			order = append(order, eng)
		}
	}
	return order
}

func (r *Router) initialEngine(ctx context.Context, board *models.JobBoard, htmlSample string) models.Engine {
	if board.EngineHint != "" && board.EngineHint != models.EngineAuto {
		return board.EngineHint
	}

	if r.advisor != nil {
		start := time.Now()
		analysis := r.advisor.Analyze(ctx, board, htmlSample)
		if r.telemetry != nil {
			r.telemetry.RecordAdvisorAnalysis(board.ID, time.Since(start))
		}
		if analysis != nil && analysis.RecommendedEngine != "" {
			return analysis.RecommendedEngine
		}
	}

	// With no hint and no usable advisor recommendation, a board that
	// needs JS rendering goes straight to the browser engine.
	if board.Flags.RequiresJS {
		return models.EngineBrowser
	}

	return models.EngineStatic
}

func (r *Router) tryEngine(ctx context.Context, eng models.Engine, board *models.JobBoard, query, location string, maxPages, maxJobs int, htmlSample string) Attempt {
	start := time.Now()
	adapter, err := r.factory.Build(eng)
	if err != nil {
		r.record(board.ID, eng, false, time.Since(start), 0, "configuration")
		return Attempt{Engine: eng, Err: err}
	}
	defer adapter.Close()

	urls, pagesScraped, err := adapter.ListJobs(ctx, board, query, location, maxPages)
	if err != nil {
		r.record(board.ID, eng, false, time.Since(start), 0, errKind(err))
		return Attempt{Engine: eng, PagesScraped: pagesScraped, Err: err}
	}
	if maxJobs > 0 && len(urls) > maxJobs {
		urls = urls[:maxJobs]
	}

	selectors := board.Selectors
	if r.advisor != nil {
		if analysis := r.advisor.Analyze(ctx, board, htmlSample); analysis != nil && len(analysis.Selectors) > 0 {
			selectors = mergeSelectors(board.Selectors, analysis.Selectors)
		}
	}

	var jobs []models.RawJob
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		job, err := adapter.ExtractJob(ctx, board, u, selectors)
		if err != nil {
			r.logger.Debug("extraction failed for url", map[string]interface{}{
				"board_id": board.ID,
				"url":      u,
				"error":    err.Error(),
			})
			continue
		}
		if job != nil {
			jobs = append(jobs, *job)
		}
	}

	success := len(jobs) > 0
	kind := ""
	if !success {
		kind = "extraction_empty"
	}
	r.record(board.ID, eng, success, time.Since(start), len(jobs), kind)

	if !success {
		return Attempt{Engine: eng, Jobs: jobs, PagesScraped: pagesScraped, Err: nil}
	}
	return Attempt{Engine: eng, Jobs: jobs, PagesScraped: pagesScraped}
}

func (r *Router) record(boardID string, eng models.Engine, success bool, duration time.Duration, jobsFound int, errKind string) {
	if r.telemetry == nil {
		return
	}
	r.telemetry.RecordEngineOutcome(boardID, eng, success, duration, jobsFound, errKind)
}

func mergeSelectors(board, advisorSelectors models.SelectorMap) models.SelectorMap {
	merged := make(models.SelectorMap, len(board)+len(advisorSelectors))
	for k, v := range advisorSelectors {
		merged[k] = v
	}
	for k, v := range board {
		merged[k] = v
	}
	return merged
}

func errKind(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := utils.KindOf(err); ok {
		return string(kind)
	}
	return "internal"
}

// Package telemetry implements the bounded-ring-buffer metrics store,
// threshold-based alerting, and dashboard aggregation described in spec
// It satisfies internal/router.Telemetry so the router can record
// per-engine outcomes without depending on this package's internals.
package telemetry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/internal/persistence"
	"jobscraper/pkg/models"
	"jobscraper/pkg/utils"
)

const (
	seriesSuccess       = "scrape_success"
	seriesResponseTime  = "response_time_seconds"
	seriesJobsFound     = "jobs_found"
	seriesAdvisorTime   = "advisor_analysis_seconds"
	seriesQualityScore  = "data_quality_score"
)

// emaAlpha weights new observations against the running EngineMetrics
// average.
const emaAlpha = 0.3

// Recorder is the telemetry core: per-series ring buffers, per-engine
// running metrics, and a deduplicated alert list.
type Recorder struct {
	seriesCapacity int
	dedupWindow    time.Duration

	mu     sync.Mutex
	series map[string]*ringBuffer

	engMu   sync.Mutex
	engines map[models.Engine]*models.EngineMetrics

	alertMu sync.Mutex
	alerts  []models.Alert
	seen    map[string]time.Time

	repo   persistence.Repository
	logger logging.Logger
}

// New builds a Recorder. repo may be nil; when set, WarmStart can
// replay recent sessions into the engine metrics on startup.
func New(cfg *config.Config, repo persistence.Repository, logger logging.Logger) *Recorder {
	capacity := cfg.Telemetry.SeriesCapacity
	if capacity <= 0 {
		capacity = 1000
	}
	dedup := cfg.Telemetry.AlertDedupWindow
	if dedup <= 0 {
		dedup = 5 * time.Minute
	}

	return &Recorder{
		seriesCapacity: capacity,
		dedupWindow:    dedup,
		series:         make(map[string]*ringBuffer),
		engines:        make(map[models.Engine]*models.EngineMetrics),
		seen:           make(map[string]time.Time),
		repo:           repo,
		logger:         logger.WithField("component", "telemetry"),
	}
}

func (r *Recorder) bufferFor(name string) *ringBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.series[name]
	if !ok {
		b = newRingBuffer(r.seriesCapacity)
		r.series[name] = b
	}
	return b
}

func (r *Recorder) record(series string, value float64, tags map[string]string) {
	r.bufferFor(series).append(models.MetricPoint{Timestamp: time.Now(), Value: value, Tags: tags})
}

// RecordEngineOutcome implements internal/router.Telemetry: updates the
// engine's running EMA metrics and appends success/response-time/
// jobs-found points, then runs the threshold evaluator.
func (r *Recorder) RecordEngineOutcome(board string, eng models.Engine, success bool, duration time.Duration, jobsFound int, errKind string) {
	tags := map[string]string{"board": board, "engine": string(eng)}

	successVal := 0.0
	if success {
		successVal = 1.0
	}
	r.record(seriesSuccess, successVal, tags)
	r.record(seriesResponseTime, duration.Seconds(), tags)
	r.record(seriesJobsFound, float64(jobsFound), tags)

	metrics := r.updateEngineMetrics(eng, success, duration, jobsFound, errKind)
	r.evaluateEngineThresholds(board, eng, metrics, duration)
}

func (r *Recorder) updateEngineMetrics(eng models.Engine, success bool, duration time.Duration, jobsFound int, errKind string) models.EngineMetrics {
	r.engMu.Lock()
	defer r.engMu.Unlock()

	m, ok := r.engines[eng]
	if !ok {
		m = &models.EngineMetrics{ErrorTypes: make(models.ErrorHistogram)}
		r.engines[eng] = m
	}

	m.TotalRequests++
	if success {
		m.Successes++
	} else {
		m.Failures++
		if errKind != "" {
			m.ErrorTypes[errKind]++
		}
	}
	m.JobsScraped += int64(jobsFound)
	m.LastUsed = time.Now()

	successVal := 0.0
	if success {
		successVal = 1.0
	}
	m.EMASuccessRate = ema(m.EMASuccessRate, successVal, m.TotalRequests)
	m.EMAResponseTime = ema(m.EMAResponseTime, duration.Seconds(), m.TotalRequests)

	return *m
}

// ema applies an exponential moving average, falling back to the raw
// observation for the first sample so the series doesn't start at 0.
func ema(current, observed float64, sampleCount int64) float64 {
	if sampleCount <= 1 {
		return observed
	}
	return emaAlpha*observed + (1-emaAlpha)*current
}

// RecordAdvisorAnalysis appends one advisor-call latency observation.
func (r *Recorder) RecordAdvisorAnalysis(board string, duration time.Duration) {
	r.record(seriesAdvisorTime, duration.Seconds(), map[string]string{"board": board})
}

// RecordQualityScore appends one validation quality-score observation
// and evaluates the quality threshold.
func (r *Recorder) RecordQualityScore(board string, score float64) {
	r.record(seriesQualityScore, score, map[string]string{"board": board})
	if score < 0.7 {
		r.raiseAlert(models.AlertWarning, "low data quality", fmt.Sprintf("board %s quality score %.3f below 0.7", board, score), board, map[string]string{"board": board})
	}
}

// evaluateEngineThresholds applies the fixed threshold table
// against the engine's freshly updated running metrics.
func (r *Recorder) evaluateEngineThresholds(board string, eng models.Engine, m models.EngineMetrics, lastDuration time.Duration) {
	source := fmt.Sprintf("%s/%s", board, eng)

	switch {
	case m.EMASuccessRate < 0.5:
		r.raiseAlert(models.AlertError, "success rate critical", fmt.Sprintf("%s success rate %.2f", source, m.EMASuccessRate), source, nil)
	case m.EMASuccessRate < 0.8:
		r.raiseAlert(models.AlertWarning, "success rate low", fmt.Sprintf("%s success rate %.2f", source, m.EMASuccessRate), source, nil)
	}

	switch {
	case lastDuration > 30*time.Second:
		r.raiseAlert(models.AlertError, "response time critical", fmt.Sprintf("%s took %s", source, lastDuration), source, nil)
	case lastDuration > 10*time.Second:
		r.raiseAlert(models.AlertWarning, "response time high", fmt.Sprintf("%s took %s", source, lastDuration), source, nil)
	}

	if m.TotalRequests > 0 {
		errorRate := float64(m.Failures) / float64(m.TotalRequests)
		switch {
		case errorRate > 0.3:
			r.raiseAlert(models.AlertCritical, "error rate critical", fmt.Sprintf("%s error rate %.2f", source, errorRate), source, nil)
		case errorRate > 0.1:
			r.raiseAlert(models.AlertError, "error rate high", fmt.Sprintf("%s error rate %.2f", source, errorRate), source, nil)
		}
	}
}

// raiseAlert appends a new alert unless an identical (source, title)
// alert was already raised within the dedup window.
func (r *Recorder) raiseAlert(level models.AlertLevel, title, message, source string, tags map[string]string) {
	r.alertMu.Lock()
	defer r.alertMu.Unlock()

	key := source + "|" + title
	if last, ok := r.seen[key]; ok && time.Since(last) < r.dedupWindow {
		return
	}
	r.seen[key] = time.Now()

	alert := models.Alert{
		ID:        utils.GenerateID(),
		Level:     level,
		Title:     title,
		Message:   message,
		Source:    source,
		CreatedAt: time.Now(),
		Tags:      tags,
	}
	r.alerts = append(r.alerts, alert)
	if len(r.alerts) > r.seriesCapacity {
		r.alerts = r.alerts[len(r.alerts)-r.seriesCapacity:]
	}
	r.logger.Warn("alert raised", map[string]interface{}{"title": title, "source": source, "level": string(level)})
}

// AlertFilter narrows Alerts results. Zero values mean "any".
type AlertFilter struct {
	Level          models.AlertLevel
	UnresolvedOnly bool
	Since          time.Time
}

// Alerts returns alerts matching filter, most recent first.
func (r *Recorder) Alerts(filter AlertFilter) []models.Alert {
	r.alertMu.Lock()
	defer r.alertMu.Unlock()

	out := make([]models.Alert, 0)
	for _, a := range r.alerts {
		if filter.Level != "" && a.Level != filter.Level {
			continue
		}
		if filter.UnresolvedOnly && a.Resolved() {
			continue
		}
		if !filter.Since.IsZero() && a.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ResolveAlert marks the alert with the given id resolved. Returns false
// when no unresolved alert carries that id.
func (r *Recorder) ResolveAlert(id string) bool {
	r.alertMu.Lock()
	defer r.alertMu.Unlock()

	for i := range r.alerts {
		if r.alerts[i].ID == id && !r.alerts[i].Resolved() {
			now := time.Now()
			r.alerts[i].ResolvedAt = &now
			return true
		}
	}
	return false
}

// Query returns the points in series within [since, until] whose tags
// are a superset of filterTags.
func (r *Recorder) Query(series string, since, until time.Time, filterTags map[string]string) []models.MetricPoint {
	points := r.bufferFor(series).snapshot()
	out := make([]models.MetricPoint, 0, len(points))
	for _, p := range points {
		if p.Timestamp.Before(since) || p.Timestamp.After(until) {
			continue
		}
		if !tagsMatch(p.Tags, filterTags) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func tagsMatch(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// TopIssues returns unresolved alerts raised within window, most recent
// first, capturing what the dashboard calls out for attention.
func (r *Recorder) TopIssues(window time.Duration) []models.Alert {
	r.alertMu.Lock()
	defer r.alertMu.Unlock()

	cutoff := time.Now().Add(-window)
	out := make([]models.Alert, 0)
	for _, a := range r.alerts {
		if a.Resolved() || a.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// WarmStart replays recent sessions from persistence into the engine
// metrics table, so a restarted process doesn't start cold.
func (r *Recorder) WarmStart(ctx context.Context, since time.Time) error {
	if r.repo == nil {
		return nil
	}
	sessions, err := r.repo.ReadRecentSessions(ctx, since)
	if err != nil {
		return fmt.Errorf("telemetry warm start: %w", err)
	}
	for _, s := range sessions {
		r.updateEngineMetrics(s.EngineUsed, s.Status == models.ResultSuccess, s.Duration, s.JobsFound, "")
	}
	r.logger.Info("telemetry warm start complete", map[string]interface{}{"sessions": len(sessions)})
	return nil
}

// engineSnapshot returns a value-copy of the current per-engine running
// metrics, safe to hand to a caller without holding engMu.
func (r *Recorder) engineSnapshot() map[models.Engine]models.EngineMetrics {
	r.engMu.Lock()
	defer r.engMu.Unlock()

	out := make(map[models.Engine]models.EngineMetrics, len(r.engines))
	for eng, m := range r.engines {
		out[eng] = *m
	}
	return out
}

// DashboardSnapshot assembles the aggregate view a monitoring surface
// polls: session counts and success rate since the window start, the
// per-engine performance table, the boards ranked by ListTopBoards, and
// a composite health classification. activeSessions is supplied by the
// caller (the queue tracks in-flight work; Recorder doesn't) to avoid a
// dependency from telemetry back onto the queue package.
func (r *Recorder) DashboardSnapshot(ctx context.Context, since time.Time, topBoardsLimit, activeSessions int) (*models.DashboardStats, error) {
	now := time.Now()

	successPoints := r.Query(seriesSuccess, since, now, nil)
	totalSessions := len(successPoints)
	successRate := 0.0
	if totalSessions > 0 {
		var sum float64
		for _, p := range successPoints {
			sum += p.Value
		}
		successRate = sum / float64(totalSessions)
	}

	responsePoints := r.Query(seriesResponseTime, since, now, nil)
	avgResponseTime := 0.0
	if len(responsePoints) > 0 {
		var sum float64
		for _, p := range responsePoints {
			sum += p.Value
		}
		avgResponseTime = sum / float64(len(responsePoints))
	}

	jobsPoints := r.Query(seriesJobsFound, since, now, nil)
	totalJobsFound := 0
	for _, p := range jobsPoints {
		totalJobsFound += int(p.Value)
	}

	var topBoards []models.BoardStats
	if r.repo != nil {
		boards, err := r.repo.ListTopBoards(ctx, since, topBoardsLimit)
		if err != nil {
			return nil, fmt.Errorf("dashboard snapshot: list top boards: %w", err)
		}
		topBoards = boards
	}

	engines := r.engineSnapshot()
	var totalRequests, totalFailures int64
	for _, m := range engines {
		totalRequests += m.TotalRequests
		totalFailures += m.Failures
	}
	errorRate := 0.0
	if totalRequests > 0 {
		errorRate = float64(totalFailures) / float64(totalRequests)
	}

	return &models.DashboardStats{
		GeneratedAt:       now,
		Since:             since,
		TotalSessions:     totalSessions,
		TotalJobsFound:    totalJobsFound,
		SuccessRate:       round3(successRate),
		AvgResponseTime:   round3(avgResponseTime),
		ActiveSessions:    activeSessions,
		TopBoards:         topBoards,
		EnginePerformance: engines,
		Health:            compositeHealth(successRate, avgResponseTime, errorRate),
	}, nil
}

// round3 rounds to 3 decimal places, matching the rounding the validator
// applies to quality scores.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// compositeHealth scores success rate, response latency, and error rate
// equally into a 0-100 composite, then buckets it into the dashboard's
// healthy (>=80), degraded (>=60), or critical status.
func compositeHealth(successRate, avgResponseSeconds, errorRate float64) models.HealthStatus {
	successScore := successRate * 100

	latencyScore := 100 - (avgResponseSeconds/30)*100
	if latencyScore < 0 {
		latencyScore = 0
	}
	if latencyScore > 100 {
		latencyScore = 100
	}

	errorScore := (1 - errorRate) * 100
	if errorScore < 0 {
		errorScore = 0
	}

	composite := (successScore + latencyScore + errorScore) / 3

	switch {
	case composite >= 80:
		return models.HealthHealthy
	case composite >= 60:
		return models.HealthDegraded
	default:
		return models.HealthCritical
	}
}

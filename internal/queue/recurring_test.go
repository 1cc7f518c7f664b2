package queue

import (
	"context"
	"testing"
	"time"

	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

func TestRegisterDefaultsNextRun(t *testing.T) {
	cfg := testConfig(t)
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())
	m := NewRecurringManager(q, logging.NewMultiLogger())

	before := time.Now()
	m.Register(&models.RecurringConfig{Name: "daily-feed", BoardID: "board-1", Interval: time.Hour})
	after := time.Now()

	list := m.List()
	if len(list) != 1 {
		t.Fatalf("expected one registered config, got %d", len(list))
	}
	if list[0].NextRun.Before(before.Add(time.Hour)) || list[0].NextRun.After(after.Add(time.Hour)) {
		t.Errorf("expected NextRun to default to now+interval, got %v", list[0].NextRun)
	}
}

func TestUnregisterRemovesConfig(t *testing.T) {
	cfg := testConfig(t)
	q := New(cfg, &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}, logging.NewMultiLogger())
	m := NewRecurringManager(q, logging.NewMultiLogger())

	m.Register(&models.RecurringConfig{Name: "daily-feed", BoardID: "board-1", Interval: time.Hour})
	m.Unregister("daily-feed")

	if len(m.List()) != 0 {
		t.Errorf("expected config to be removed, got %v", m.List())
	}
}

// TestDispatchDueEnqueuesAndAdvancesNextRun exercises dispatchDue directly
// with a synthetic timestamp, avoiding any real ticker wait.
func TestDispatchDueEnqueuesAndAdvancesNextRun(t *testing.T) {
	cfg := testConfig(t)
	enqueued := make(chan *models.ScrapeTask, 1)
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())
	q.OnCompleted(func(task *models.ScrapeTask) { enqueued <- task })

	m := NewRecurringManager(q, logging.NewMultiLogger())
	now := time.Now()
	due := &models.RecurringConfig{
		Name:     "hourly-feed",
		BoardID:  "board-2",
		Query:    "golang",
		Interval: time.Hour,
		NextRun:  now.Add(-time.Minute), // already due
	}
	notYetDue := &models.RecurringConfig{
		Name:     "weekly-feed",
		BoardID:  "board-3",
		Interval: 7 * 24 * time.Hour,
		NextRun:  now.Add(time.Hour), // not due yet
	}
	m.Register(due)
	m.Register(notYetDue)

	m.dispatchDue(now)

	if q.Stats().Totals != 1 {
		t.Fatalf("expected exactly one task dispatched for the due config, got %d total", q.Stats().Totals)
	}

	list := m.List()
	var dueAfter, notDueAfter models.RecurringConfig
	for _, c := range list {
		switch c.Name {
		case "hourly-feed":
			dueAfter = c
		case "weekly-feed":
			notDueAfter = c
		}
	}
	if !dueAfter.NextRun.After(now) {
		t.Errorf("expected due config's NextRun advanced past now, got %v", dueAfter.NextRun)
	}
	if dueAfter.LastRun.IsZero() {
		t.Error("expected due config's LastRun to be stamped")
	}
	if !notDueAfter.LastRun.IsZero() {
		t.Error("expected the not-yet-due config to be left untouched")
	}
}

func TestDispatchDueSkipsWhenQueueAtCapacity(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.QueueCapacity = 1
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())
	q.Enqueue(&models.ScrapeTask{BoardID: "filler"}) // fills the single capacity slot

	m := NewRecurringManager(q, logging.NewMultiLogger())
	now := time.Now()
	cfgDue := &models.RecurringConfig{Name: "hourly-feed", BoardID: "board-2", Interval: time.Hour, NextRun: now.Add(-time.Minute)}
	m.Register(cfgDue)

	m.dispatchDue(now)

	list := m.List()
	if !list[0].LastRun.IsZero() {
		t.Error("expected a dispatch failure (queue at capacity) to leave LastRun untouched")
	}
}

func TestRecurringManagerStartStopIdempotent(t *testing.T) {
	cfg := testConfig(t)
	q := New(cfg, &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}, logging.NewMultiLogger())
	m := NewRecurringManager(q, logging.NewMultiLogger())

	m.Start()
	m.Start()
	m.Stop()
	m.Stop()
}

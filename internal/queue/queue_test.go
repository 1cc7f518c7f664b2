package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

// fakeOrchestrator is a test double implementing the Orchestrator
// interface with a configurable run function.
type fakeOrchestrator struct {
	mu  sync.Mutex
	run func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error)
}

func (f *fakeOrchestrator) Run(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
	f.mu.Lock()
	fn := f.run
	f.mu.Unlock()
	return fn(ctx, task)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestEnqueueAssignsIDAndDefaults(t *testing.T) {
	cfg := testConfig(t)
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{Status: models.ResultSuccess}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	id, err := q.Enqueue(&models.ScrapeTask{BoardID: "board-1"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty assigned id")
	}

	task := q.Get(id)
	if task == nil {
		t.Fatal("expected Get to find the enqueued task")
	}
	if task.Status != models.TaskPending {
		t.Errorf("expected default status pending, got %q", task.Status)
	}
	if task.MaxRetries != cfg.Workers.MaxRetries {
		t.Errorf("expected default max retries %d, got %d", cfg.Workers.MaxRetries, task.MaxRetries)
	}
}

// TestEnqueueFailsAtCapacity checks that queue size never
// exceeds capacity.
func TestEnqueueFailsAtCapacity(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.QueueCapacity = 2
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	if _, err := q.Enqueue(&models.ScrapeTask{BoardID: "a"}); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if _, err := q.Enqueue(&models.ScrapeTask{BoardID: "b"}); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if _, err := q.Enqueue(&models.ScrapeTask{BoardID: "c"}); err == nil {
		t.Fatal("expected third enqueue to fail at capacity 2")
	}
	if q.Stats().QueueSize > cfg.Workers.QueueCapacity {
		t.Errorf("queue size %d exceeds capacity %d", q.Stats().QueueSize, cfg.Workers.QueueCapacity)
	}
}

func TestCancelQueuedTaskRemovesFromHeap(t *testing.T) {
	cfg := testConfig(t)
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	id, _ := q.Enqueue(&models.ScrapeTask{BoardID: "a"})
	if !q.Cancel(id) {
		t.Fatal("expected Cancel to succeed for a queued task")
	}

	task := q.Get(id)
	if task.Status != models.TaskCancelled {
		t.Errorf("expected cancelled status, got %q", task.Status)
	}
	if q.Stats().QueueSize != 0 {
		t.Errorf("expected cancelled task removed from heap, queue size=%d", q.Stats().QueueSize)
	}
}

func TestCancelIsIdempotentOnTerminalTask(t *testing.T) {
	cfg := testConfig(t)
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	id, _ := q.Enqueue(&models.ScrapeTask{BoardID: "a"})
	q.Cancel(id)
	if q.Cancel(id) {
		t.Fatal("expected a second Cancel on an already-terminal task to report false")
	}
}

// TestCancelRunningTaskStopsCooperatively checks that
// cancelling a running task transitions it to cancelled and that
// it is not re-enqueued.
func TestCancelRunningTaskStopsCooperatively(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.PoolSize = 1
	started := make(chan struct{})
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	q := New(cfg, orch, logging.NewMultiLogger())
	q.Start()
	defer q.Stop()

	id, _ := q.Enqueue(&models.ScrapeTask{BoardID: "a"})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task never started")
	}

	if !q.Cancel(id) {
		t.Fatal("expected Cancel to succeed on a running task")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if q.Get(id).Status == models.TaskCancelled {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := q.Get(id).Status; got != models.TaskCancelled {
		t.Fatalf("expected status cancelled within grace period, got %q", got)
	}

	time.Sleep(50 * time.Millisecond)
	if got := q.Get(id).Status; got != models.TaskCancelled {
		t.Errorf("expected cancelled task to stay cancelled (no re-enqueue), got %q", got)
	}
}

// A task with no retry budget that fails once ends up failed with
// RetryCount equal to MaxRetries.
func TestRetryExhaustionMarksFailed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.PoolSize = 1
	cfg.Workers.MaxRetries = 0
	failWith := errors.New("boom")
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return nil, failWith
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	var failedTask *models.ScrapeTask
	var mu sync.Mutex
	done := make(chan struct{})
	q.OnFailed(func(task *models.ScrapeTask) {
		mu.Lock()
		failedTask = task
		mu.Unlock()
		close(done)
	})

	q.Start()
	defer q.Stop()

	id, _ := q.Enqueue(&models.ScrapeTask{BoardID: "a", MaxRetries: 0})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never reached failed callback")
	}

	mu.Lock()
	defer mu.Unlock()
	if failedTask == nil || failedTask.ID != id {
		t.Fatal("expected OnFailed callback to receive the failed task")
	}
	if failedTask.Status != models.TaskFailed {
		t.Errorf("expected status failed, got %q", failedTask.Status)
	}
	if failedTask.RetryCount != failedTask.MaxRetries {
		t.Errorf("expected RetryCount(%d) == MaxRetries(%d) at terminal failure", failedTask.RetryCount, failedTask.MaxRetries)
	}
	if failedTask.LastError == "" {
		t.Error("expected a non-empty last error")
	}
}

func TestOnCompletedCallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers.PoolSize = 1
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{Status: models.ResultSuccess, Found: 3}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	done := make(chan *models.ScrapeTask, 1)
	q.OnCompleted(func(task *models.ScrapeTask) { done <- task })

	q.Start()
	defer q.Stop()

	q.Enqueue(&models.ScrapeTask{BoardID: "a"})

	select {
	case task := <-done:
		if task.Status != models.TaskCompleted {
			t.Errorf("expected completed status, got %q", task.Status)
		}
		if task.Result == nil || task.Result.Found != 3 {
			t.Errorf("expected result to be attached to the completed task, got %+v", task.Result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task never completed")
	}
}

func TestStartStopIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	orch := &fakeOrchestrator{run: func(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error) {
		return &models.ScrapeResult{}, nil
	}}
	q := New(cfg, orch, logging.NewMultiLogger())

	q.Start()
	q.Start() // second call should be a no-op, not panic or double the pool
	q.Stop()
	q.Stop() // idempotent
}

func TestRetryBackoffFormula(t *testing.T) {
	cases := map[int]time.Duration{
		0: 1 * time.Second,
		1: 2 * time.Second,
		2: 4 * time.Second,
		6: 60 * time.Second, // 2^6=64, capped at 60
		7: 60 * time.Second,
	}
	for retry, want := range cases {
		if got := retryBackoff(retry); got != want {
			t.Errorf("retryBackoff(%d) = %v, want %v", retry, got, want)
		}
	}
}

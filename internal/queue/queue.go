// Package queue implements the bounded priority task queue and worker
// pool: higher-priority tasks run first, ties
// break FIFO, scheduled-future tasks are re-enqueued with a small delay
// when popped early, and a fixed worker pool executes tasks with
// per-task retry/backoff and cooperative cancellation.
package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
	"jobscraper/pkg/utils"
)

// Orchestrator is the narrow dependency a worker invokes per task.
type Orchestrator interface {
	Run(ctx context.Context, task *models.ScrapeTask) (*models.ScrapeResult, error)
}

// Stats is the queue's aggregate snapshot.
type Stats struct {
	QueueSize int                       `json:"queue_size"`
	Running   int                       `json:"running"`
	Totals    int                       `json:"totals"`
	ByStatus  map[models.TaskStatus]int `json:"by_status"`
}

// Queue is a bounded priority queue plus a fixed worker pool.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	heap     taskHeap
	byID     map[string]*entry
	all      map[string]*models.ScrapeTask
	capacity int
	seq      int64

	running      bool
	runningCount int
	stopCh       chan struct{}
	wg           sync.WaitGroup
	cancelled    map[string]context.CancelFunc

	cfg          *config.Config
	orchestrator Orchestrator
	logger       logging.Logger

	onCompleted []func(*models.ScrapeTask)
	onFailed    []func(*models.ScrapeTask)
	cbMu        sync.Mutex
}

// New builds a Queue whose capacity is Workers.QueueCapacity, or 1000
// when that value is <= 0.
func New(cfg *config.Config, orchestrator Orchestrator, logger logging.Logger) *Queue {
	capacity := cfg.Workers.QueueCapacity
	if capacity <= 0 {
		capacity = 1000
	}
	q := &Queue{
		byID:         make(map[string]*entry),
		all:          make(map[string]*models.ScrapeTask),
		capacity:     capacity,
		cfg:          cfg,
		orchestrator: orchestrator,
		logger:       logger,
		cancelled:    make(map[string]context.CancelFunc),
	}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.heap)
	return q
}

// Enqueue adds task to the queue, assigning an ID if absent. Fails when
// the queue is at capacity.
func (q *Queue) Enqueue(task *models.ScrapeTask) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) >= q.capacity {
		return "", fmt.Errorf("queue at capacity (%d)", q.capacity)
	}

	if task.ID == "" {
		task.ID = utils.GenerateIDWithPrefix("task")
	}
	if task.Status == "" {
		task.Status = models.TaskPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = q.cfg.Workers.MaxRetries
	}

	q.seq++
	e := &entry{task: task, seq: q.seq}
	heap.Push(&q.heap, e)
	q.byID[task.ID] = e
	q.all[task.ID] = task

	q.cond.Signal()
	return task.ID, nil
}

// EnqueueBulk enqueues every task in list, returning their assigned IDs
// in order. Stops at the first failure and returns the IDs assigned so
// far alongside the error.
func (q *Queue) EnqueueBulk(list []*models.ScrapeTask) ([]string, error) {
	ids := make([]string, 0, len(list))
	for _, t := range list {
		id, err := q.Enqueue(t)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Cancel marks a task cancelled. If it is currently running, its
// context is cancelled for cooperative abort; if still queued, it is
// removed from the heap.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.all[id]
	if !ok || task.Status.IsTerminal() {
		return false
	}

	if e, queued := q.byID[id]; queued {
		heap.Remove(&q.heap, e.index)
		delete(q.byID, id)
	}
	if cancel, running := q.cancelled[id]; running {
		cancel()
	}

	task.Status = models.TaskCancelled
	return true
}

// Get returns a copy of the task with the given id, or nil.
func (q *Queue) Get(id string) *models.ScrapeTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.all[id]; ok {
		return t.Clone()
	}
	return nil
}

// List returns copies of all tasks matching filter.
func (q *Queue) List(filter models.TaskFilter) []*models.ScrapeTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*models.ScrapeTask, 0, len(q.all))
	for _, t := range q.all {
		if filter.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Stats returns the current queue/worker/status snapshot.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	byStatus := make(map[models.TaskStatus]int)
	for _, t := range q.all {
		byStatus[t.Status]++
	}
	return Stats{
		QueueSize: len(q.heap),
		Running:   q.runningCount,
		Totals:    len(q.all),
		ByStatus:  byStatus,
	}
}

// OnCompleted registers a callback invoked after a task completes.
func (q *Queue) OnCompleted(fn func(*models.ScrapeTask)) {
	q.cbMu.Lock()
	defer q.cbMu.Unlock()
	q.onCompleted = append(q.onCompleted, fn)
}

// OnFailed registers a callback invoked after a task fails terminally.
func (q *Queue) OnFailed(fn func(*models.ScrapeTask)) {
	q.cbMu.Lock()
	defer q.cbMu.Unlock()
	q.onFailed = append(q.onFailed, fn)
}

// Start launches the worker pool. Idempotent.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	poolSize := q.cfg.Workers.PoolSize
	if poolSize <= 0 {
		poolSize = 5
	}
	q.mu.Unlock()

	for i := 0; i < poolSize; i++ {
		q.wg.Add(1)
		go q.workerLoop(i)
	}
	q.logger.Info("task queue started", map[string]interface{}{"workers": poolSize})
}

// Stop cancels in-flight tasks and waits for workers to drain, up to
// Workers.StopDrainWait. Idempotent.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	for _, cancel := range q.cancelled {
		cancel()
	}
	q.cond.Broadcast()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	deadline := q.cfg.Workers.StopDrainWait
	if deadline <= 0 {
		deadline = 15 * time.Second
	}
	select {
	case <-done:
	case <-time.After(deadline):
		q.logger.Warn("task queue stop: workers did not drain before deadline")
	}
}

// workerLoop pops and executes tasks until stopped.
func (q *Queue) workerLoop(id int) {
	defer q.wg.Done()
	for {
		task := q.pop()
		if task == nil {
			return
		}
		q.execute(task)
	}
}

// pop blocks for the next runnable task, honoring scheduled_at and the
// stop signal. Returns nil as soon as the queue is stopped, whether or
// not tasks remain queued.
func (q *Queue) pop() *models.ScrapeTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case <-q.stopCh:
			return nil
		default:
		}

		if len(q.heap) == 0 {
			q.cond.Wait()
			continue
		}

		top := q.heap[0]
		if !top.task.ScheduledAt.IsZero() && top.task.ScheduledAt.After(time.Now()) {
			// Popped early: re-enqueue with a small delay rather than
			// busy-spin the worker on it.
			heap.Pop(&q.heap)
			delete(q.byID, top.task.ID)
			go func(t *entry) {
				time.Sleep(2 * time.Second)
				q.mu.Lock()
				t.seq = q.nextSeqLocked()
				heap.Push(&q.heap, t)
				q.byID[t.task.ID] = t
				q.cond.Signal()
				q.mu.Unlock()
			}(top)
			continue
		}

		popped := heap.Pop(&q.heap).(*entry)
		delete(q.byID, popped.task.ID)
		q.runningCount++
		return popped.task
	}
}

func (q *Queue) nextSeqLocked() int64 {
	q.seq++
	return q.seq
}

// execute runs one task through the orchestrator, handling retry/backoff
// and terminal-status callbacks.
func (q *Queue) execute(task *models.ScrapeTask) {
	defer func() {
		q.mu.Lock()
		q.runningCount--
		q.mu.Unlock()
	}()

	if task.Status == models.TaskCancelled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.taskDeadline())
	q.mu.Lock()
	q.cancelled[task.ID] = cancel
	q.mu.Unlock()
	defer func() {
		cancel()
		q.mu.Lock()
		delete(q.cancelled, task.ID)
		q.mu.Unlock()
	}()

	now := time.Now()
	task.Status = models.TaskRunning
	task.StartedAt = &now

	result, err := q.orchestrator.Run(ctx, task)

	if task.Status == models.TaskCancelled {
		return
	}

	if err != nil {
		q.handleFailure(task, err)
		return
	}

	completed := time.Now()
	task.Result = result
	task.CompletedAt = &completed
	task.Status = models.TaskCompleted
	q.logger.Info("task completed", map[string]interface{}{"task_id": task.ID, "found": result.Found})
	q.notify(q.onCompleted, task)
}

func (q *Queue) handleFailure(task *models.ScrapeTask, err error) {
	task.LastError = err.Error()

	if task.RetryCount < task.MaxRetries {
		task.RetryCount++
		task.Status = models.TaskRetrying
		backoff := retryBackoff(task.RetryCount)
		q.logger.Warn("task failed, retrying", map[string]interface{}{
			"task_id": task.ID, "retry": task.RetryCount, "backoff": backoff.String(),
		})
		go func() {
			time.Sleep(backoff)
			q.mu.Lock()
			if task.Status != models.TaskCancelled {
				task.Status = models.TaskPending
				q.seq++
				e := &entry{task: task, seq: q.seq}
				heap.Push(&q.heap, e)
				q.byID[task.ID] = e
				q.cond.Signal()
			}
			q.mu.Unlock()
		}()
		return
	}

	completed := time.Now()
	task.CompletedAt = &completed
	task.Status = models.TaskFailed
	q.logger.Error("task failed permanently", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
	q.notify(q.onFailed, task)
}

func (q *Queue) notify(callbacks []func(*models.ScrapeTask), task *models.ScrapeTask) {
	q.cbMu.Lock()
	cbs := append([]func(*models.ScrapeTask){}, callbacks...)
	q.cbMu.Unlock()
	for _, cb := range cbs {
		cb(task.Clone())
	}
}

func (q *Queue) taskDeadline() time.Duration {
	if q.cfg.Workers.TaskDeadline > 0 {
		return q.cfg.Workers.TaskDeadline
	}
	return 10 * time.Minute
}

// retryBackoff is min(2^retry, 60) seconds.
func retryBackoff(retry int) time.Duration {
	seconds := 1 << uint(retry)
	if seconds > 60 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

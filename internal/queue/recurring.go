package queue

import (
	"sync"
	"time"

	"jobscraper/internal/logging"
	"jobscraper/pkg/models"
)

// RecurringManager holds a registry of named recurring scrape configs
// and dispatches due ones onto a Queue once per minute.
type RecurringManager struct {
	mu      sync.Mutex
	configs map[string]*models.RecurringConfig
	queue   *Queue
	logger  logging.Logger
	stopCh  chan struct{}
	running bool
}

// NewRecurringManager builds a manager dispatching onto queue.
func NewRecurringManager(queue *Queue, logger logging.Logger) *RecurringManager {
	return &RecurringManager{
		configs: make(map[string]*models.RecurringConfig),
		queue:   queue,
		logger:  logger,
	}
}

// Register adds or replaces a named recurring config. NextRun defaults
// to now+interval if unset.
func (m *RecurringManager) Register(cfg *models.RecurringConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.NextRun.IsZero() {
		cfg.NextRun = time.Now().Add(cfg.Interval)
	}
	m.configs[cfg.Name] = cfg
}

// Unregister removes a named recurring config.
func (m *RecurringManager) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, name)
}

// List returns a snapshot of every registered config.
func (m *RecurringManager) List() []models.RecurringConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RecurringConfig, 0, len(m.configs))
	for _, c := range m.configs {
		out = append(out, *c)
	}
	return out
}

// Start launches the once-per-minute dispatcher loop. Idempotent.
func (m *RecurringManager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	go m.loop()
}

// Stop ends the dispatcher loop. Idempotent.
func (m *RecurringManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()
}

func (m *RecurringManager) loop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			m.dispatchDue(now)
		}
	}
}

func (m *RecurringManager) dispatchDue(now time.Time) {
	m.mu.Lock()
	due := make([]*models.RecurringConfig, 0)
	for _, cfg := range m.configs {
		if !cfg.NextRun.After(now) {
			due = append(due, cfg)
		}
	}
	m.mu.Unlock()

	for _, cfg := range due {
		task := &models.ScrapeTask{
			BoardID:  cfg.BoardID,
			Query:    cfg.Query,
			Location: cfg.Location,
			Priority: cfg.Priority,
		}
		if _, err := m.queue.Enqueue(task); err != nil {
			m.logger.Warn("recurring dispatch failed", map[string]interface{}{"name": cfg.Name, "error": err.Error()})
			continue
		}

		m.mu.Lock()
		cfg.LastRun = now
		cfg.NextRun = cfg.NextRun.Add(cfg.Interval)
		m.mu.Unlock()
	}
}

package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"jobscraper/pkg/models"
)

// boardMetric holds the per-board diagnostic columns UpdateBoardMetrics
// writes.
type boardMetric struct {
	successRate     float64
	avgResponseTime float64
	updatedAt       time.Time
}

// Memory is an in-memory Repository, useful for tests and for running
// the orchestrator without a configured database.
type Memory struct {
	mu       sync.RWMutex
	boards   map[string]*models.JobBoard
	metrics  map[string]boardMetric
	sessions []models.Session
	rawJobs  []models.RawJob
	jobKeys  map[string]bool
}

// NewMemory builds an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		boards:  make(map[string]*models.JobBoard),
		metrics: make(map[string]boardMetric),
		jobKeys: make(map[string]bool),
	}
}

func (m *Memory) LoadJobBoards(_ context.Context, filter models.BoardFilter) ([]models.JobBoard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.JobBoard, 0, len(m.boards))
	for _, b := range m.boards {
		if filter.Region != "" && b.Region != filter.Region {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.ActiveOnly && !b.Flags.Active {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpsertJobBoard(_ context.Context, board *models.JobBoard) error {
	if board.ID == "" {
		return fmt.Errorf("board id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *board
	m.boards[board.ID] = &cp
	return nil
}

func (m *Memory) UpdateBoardMetrics(_ context.Context, id string, successRate, avgResponseTime float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return fmt.Errorf("board %q not found", id)
	}
	m.metrics[id] = boardMetric{
		successRate:     successRate,
		avgResponseTime: avgResponseTime,
		updatedAt:       time.Now(),
	}
	return nil
}

func (m *Memory) SaveSession(_ context.Context, task *models.ScrapeTask, result *models.ScrapeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := models.Session{
		ID:         task.ID,
		BoardID:    task.BoardID,
		Status:     result.Status,
		EngineUsed: result.EngineUsed,
		JobsFound:  result.Found,
		Errors:     result.Errors,
		Duration:   result.Duration,
	}
	if task.StartedAt != nil {
		session.StartedAt = *task.StartedAt
	}
	if task.CompletedAt != nil {
		session.CompletedAt = *task.CompletedAt
	} else {
		session.CompletedAt = time.Now()
	}
	m.sessions = append(m.sessions, session)
	return nil
}

// SaveRawJobs appends jobs, idempotent on (board_id, job_url): a job
// already stored under the same key is skipped rather than duplicated.
func (m *Memory) SaveRawJobs(_ context.Context, jobs []models.RawJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range jobs {
		key := j.BoardID + "|" + j.URL
		if m.jobKeys[key] {
			continue
		}
		m.jobKeys[key] = true
		m.rawJobs = append(m.rawJobs, j)
	}
	return nil
}

func (m *Memory) ReadRecentSessions(_ context.Context, since time.Time) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.CompletedAt.After(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) ListTopBoards(_ context.Context, since time.Time, limit int) ([]models.BoardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg := make(map[string]*models.BoardStats)
	for _, s := range m.sessions {
		if s.CompletedAt.Before(since) {
			continue
		}
		stat, ok := agg[s.BoardID]
		if !ok {
			stat = &models.BoardStats{BoardID: s.BoardID}
			if board, ok := m.boards[s.BoardID]; ok {
				stat.BoardName = board.Name
			}
			agg[s.BoardID] = stat
		}
		stat.Sessions++
		stat.JobsFound += s.JobsFound
		if s.Status == models.ResultSuccess {
			stat.SuccessRate++
		}
	}

	out := make([]models.BoardStats, 0, len(agg))
	for _, stat := range agg {
		if stat.Sessions > 0 {
			stat.SuccessRate = stat.SuccessRate / float64(stat.Sessions)
		}
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SuccessRate != out[j].SuccessRate {
			return out[i].SuccessRate > out[j].SuccessRate
		}
		return out[i].JobsFound > out[j].JobsFound
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RawJobCount reports how many distinct (board_id, job_url) raw jobs
// have been stored.
func (m *Memory) RawJobCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rawJobs)
}

func (m *Memory) Close() error { return nil }

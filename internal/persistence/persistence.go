// Package persistence defines the external storage contract: a
// narrow set of operations the core calls against an opaque backend,
// plus an in-memory reference implementation. The concrete Postgres
// backend lives in the postgres subpackage.
package persistence

import (
	"context"
	"time"

	"jobscraper/pkg/models"
)

// Repository is the persistence contract the orchestrator, queue, and
// telemetry warm-start depend on. Every operation is expected to be
// idempotent on (board_id, job_url) where applicable.
type Repository interface {
	LoadJobBoards(ctx context.Context, filter models.BoardFilter) ([]models.JobBoard, error)
	UpsertJobBoard(ctx context.Context, board *models.JobBoard) error
	UpdateBoardMetrics(ctx context.Context, id string, successRate, avgResponseTime float64) error
	SaveSession(ctx context.Context, task *models.ScrapeTask, result *models.ScrapeResult) error
	SaveRawJobs(ctx context.Context, jobs []models.RawJob) error
	ReadRecentSessions(ctx context.Context, since time.Time) ([]models.Session, error)
	ListTopBoards(ctx context.Context, since time.Time, limit int) ([]models.BoardStats, error)
	Close() error
}

// Package postgres implements internal/persistence.Repository on top of
// database/sql using the pgx/v5 stdlib driver, with goose-managed
// schema migrations and an open-with-retry startup ping.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"jobscraper/internal/config"
	"jobscraper/pkg/models"
)

// Store is a Postgres-backed Repository.
type Store struct {
	db *sql.DB
}

// Open connects to cfg.Postgres.DSN and configures the pool, retrying
// the initial ping for up to ConnectTimeout.
func Open(cfg config.PostgresConfig) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		if err := db.Ping(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			db.Close()
			return nil, fmt.Errorf("db not ready within %s", timeout)
		}
		time.Sleep(250 * time.Millisecond)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LoadJobBoards(ctx context.Context, filter models.BoardFilter) ([]models.JobBoard, error) {
	query := `SELECT id, name, base_url, engine_hint, region, category, selectors,
		rate_limit_delay, max_concurrent, request_headers, requires_js, has_anti_bot,
		active, priority, last_analyzed, confidence
		FROM job_boards WHERE 1=1`
	var args []interface{}
	n := 0
	if filter.Region != "" {
		n++
		query += fmt.Sprintf(" AND region = $%d", n)
		args = append(args, filter.Region)
	}
	if filter.Category != "" {
		n++
		query += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, filter.Category)
	}
	if filter.ActiveOnly {
		query += " AND active = true"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load job boards: %w", err)
	}
	defer rows.Close()

	var out []models.JobBoard
	for rows.Next() {
		var b models.JobBoard
		var selectorsRaw, headersRaw []byte
		var lastAnalyzed sql.NullTime
		if err := rows.Scan(&b.ID, &b.Name, &b.BaseURL, &b.EngineHint, &b.Region, &b.Category,
			&selectorsRaw, &b.RateLimitDelay, &b.MaxConcurrent, &headersRaw,
			&b.Flags.RequiresJS, &b.Flags.HasAntiBot, &b.Flags.Active, &b.Flags.Priority,
			&lastAnalyzed, &b.Analysis.Confidence); err != nil {
			return nil, fmt.Errorf("scan job board: %w", err)
		}
		_ = json.Unmarshal(selectorsRaw, &b.Selectors)
		_ = json.Unmarshal(headersRaw, &b.RequestHeaders)
		if lastAnalyzed.Valid {
			b.Analysis.LastAnalyzed = lastAnalyzed.Time
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) UpsertJobBoard(ctx context.Context, board *models.JobBoard) error {
	selectors, err := json.Marshal(board.Selectors)
	if err != nil {
		return fmt.Errorf("marshal selectors: %w", err)
	}
	headers, err := json.Marshal(board.RequestHeaders)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_boards (id, name, base_url, engine_hint, region, category, selectors,
			rate_limit_delay, max_concurrent, request_headers, requires_js, has_anti_bot,
			active, priority, last_analyzed, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, base_url = EXCLUDED.base_url, engine_hint = EXCLUDED.engine_hint,
			region = EXCLUDED.region, category = EXCLUDED.category, selectors = EXCLUDED.selectors,
			rate_limit_delay = EXCLUDED.rate_limit_delay, max_concurrent = EXCLUDED.max_concurrent,
			request_headers = EXCLUDED.request_headers, requires_js = EXCLUDED.requires_js,
			has_anti_bot = EXCLUDED.has_anti_bot, active = EXCLUDED.active, priority = EXCLUDED.priority,
			last_analyzed = EXCLUDED.last_analyzed, confidence = EXCLUDED.confidence`,
		board.ID, board.Name, board.BaseURL, string(board.EngineHint), board.Region, board.Category,
		selectors, board.RateLimitDelay, board.MaxConcurrent, headers, board.Flags.RequiresJS,
		board.Flags.HasAntiBot, board.Flags.Active, board.Flags.Priority,
		nullableTime(board.Analysis.LastAnalyzed), board.Analysis.Confidence)
	if err != nil {
		return fmt.Errorf("upsert job board: %w", err)
	}
	return nil
}

func (s *Store) UpdateBoardMetrics(ctx context.Context, id string, successRate, avgResponseTime float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE job_boards SET success_rate = $1, avg_response_time = $2 WHERE id = $3`,
		successRate, avgResponseTime, id)
	if err != nil {
		return fmt.Errorf("update board metrics: %w", err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, task *models.ScrapeTask, result *models.ScrapeResult) error {
	var started, completed time.Time
	if task.StartedAt != nil {
		started = *task.StartedAt
	}
	if task.CompletedAt != nil {
		completed = *task.CompletedAt
	} else {
		completed = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, board_id, status, engine_used, jobs_found, errors, duration_ms, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, engine_used = EXCLUDED.engine_used, jobs_found = EXCLUDED.jobs_found,
			errors = EXCLUDED.errors, duration_ms = EXCLUDED.duration_ms, completed_at = EXCLUDED.completed_at`,
		task.ID, task.BoardID, string(result.Status), string(result.EngineUsed),
		result.Found, result.Errors, result.Duration.Milliseconds(), started, completed)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) SaveRawJobs(ctx context.Context, jobs []models.RawJob) error {
	if len(jobs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_jobs (board_id, url, title, company, location, description, salary, posted_date, engine, fetched_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (board_id, url) DO UPDATE SET
			title = EXCLUDED.title, company = EXCLUDED.company, location = EXCLUDED.location,
			description = EXCLUDED.description, salary = EXCLUDED.salary, posted_date = EXCLUDED.posted_date,
			fetched_at = EXCLUDED.fetched_at`)
	if err != nil {
		return fmt.Errorf("prepare insert raw job: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		if _, err := stmt.ExecContext(ctx, job.BoardID, job.URL, job.Title, job.Company, job.Location,
			job.Description, job.Salary, nullableTimePtr(job.PostedDate), string(job.Engine), job.FetchedAt); err != nil {
			return fmt.Errorf("insert raw job %s: %w", job.URL, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ReadRecentSessions(ctx context.Context, since time.Time) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, status, engine_used, jobs_found, errors, duration_ms, started_at, completed_at
		FROM sessions WHERE completed_at > $1 ORDER BY completed_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("read recent sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var sess models.Session
		var durationMs int64
		if err := rows.Scan(&sess.ID, &sess.BoardID, &sess.Status, &sess.EngineUsed, &sess.JobsFound,
			&sess.Errors, &durationMs, &sess.StartedAt, &sess.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) ListTopBoards(ctx context.Context, since time.Time, limit int) ([]models.BoardStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.board_id, b.name, COUNT(*), COALESCE(SUM(s.jobs_found), 0),
			AVG(CASE WHEN s.status = 'success' THEN 1.0 ELSE 0.0 END)
		FROM sessions s
		JOIN job_boards b ON b.id = s.board_id
		WHERE s.completed_at > $1
		GROUP BY s.board_id, b.name
		ORDER BY AVG(CASE WHEN s.status = 'success' THEN 1.0 ELSE 0.0 END) DESC, SUM(s.jobs_found) DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list top boards: %w", err)
	}
	defer rows.Close()

	var out []models.BoardStats
	for rows.Next() {
		var stat models.BoardStats
		if err := rows.Scan(&stat.BoardID, &stat.BoardName, &stat.Sessions, &stat.JobsFound, &stat.SuccessRate); err != nil {
			return nil, fmt.Errorf("scan board stats: %w", err)
		}
		out = append(out, stat)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

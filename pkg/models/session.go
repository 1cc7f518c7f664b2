package models

import "time"

// Session is the persisted record of one executed ScrapeTask, used for
// Telemetry warm-start and historical reporting.
type Session struct {
	ID           string       `json:"id"`
	BoardID      string       `json:"board_id"`
	Status       ResultStatus `json:"status"`
	EngineUsed   Engine       `json:"engine_used"`
	JobsFound    int          `json:"jobs_found"`
	Errors       int          `json:"errors"`
	Duration     time.Duration `json:"duration"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  time.Time    `json:"completed_at"`
}

// BoardFilter narrows LoadJobBoards results.
type BoardFilter struct {
	Region     string
	Category   string
	ActiveOnly bool
}

// BoardStats is one board's aggregated performance over a window, used
// by ListTopBoards.
type BoardStats struct {
	BoardID     string  `json:"board_id"`
	BoardName   string  `json:"board_name"`
	Sessions    int     `json:"sessions"`
	JobsFound   int     `json:"jobs_found"`
	SuccessRate float64 `json:"success_rate"`
}

package models

import "time"

// ErrorHistogram counts failures by error-kind tag.
type ErrorHistogram map[string]int64

// EngineMetrics tracks the running performance of one engine.
type EngineMetrics struct {
	TotalRequests       int64          `json:"total_requests"`
	Successes           int64          `json:"successes"`
	Failures            int64          `json:"failures"`
	EMAResponseTime     float64        `json:"ema_response_time_seconds"`
	EMASuccessRate       float64       `json:"ema_success_rate"`
	JobsScraped         int64          `json:"jobs_scraped"`
	LastUsed            time.Time      `json:"last_used"`
	ErrorTypes          ErrorHistogram `json:"error_types"`
}

// MetricPoint is one observation in a telemetry time series.
type MetricPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// AlertLevel ranks an Alert's severity.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertError    AlertLevel = "error"
	AlertCritical AlertLevel = "critical"
)

// Alert is a thresholded telemetry notification.
type Alert struct {
	ID         string            `json:"id"`
	Level      AlertLevel        `json:"level"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Source     string            `json:"source"`
	CreatedAt  time.Time         `json:"created_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Resolved reports whether the alert has been resolved.
func (a *Alert) Resolved() bool {
	return a.ResolvedAt != nil
}

// HealthStatus is the composite health classification reported by a
// dashboard snapshot.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

// DashboardStats is the aggregate snapshot assembled from the running
// telemetry series, per-engine metrics, and persisted board history.
type DashboardStats struct {
	GeneratedAt       time.Time                `json:"generated_at"`
	Since             time.Time                `json:"since"`
	TotalSessions     int                      `json:"total_sessions"`
	TotalJobsFound    int                      `json:"total_jobs_found"`
	SuccessRate       float64                  `json:"success_rate"`
	AvgResponseTime   float64                  `json:"avg_response_time_seconds"`
	ActiveSessions    int                      `json:"active_sessions"`
	TopBoards         []BoardStats             `json:"top_boards"`
	EnginePerformance map[Engine]EngineMetrics `json:"engine_performance"`
	Health            HealthStatus             `json:"health"`
}

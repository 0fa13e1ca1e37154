package models

import "time"

// CountRow is one GROUP BY bucket.
type CountRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// AnalyticsSummary aggregates report counts for the dashboard.
type AnalyticsSummary struct {
	TotalReports        int            `json:"total_reports"`
	ByStatus            map[string]int `json:"by_status"`
	ByIncidentType      map[string]int `json:"by_incident_type"`
	ByPriority          map[string]int `json:"by_priority"`
	HighPriority        int            `json:"high_priority"`
	UnreadNotifications int            `json:"unread_notifications"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// SystemMetrics is a lightweight view over the in-process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	ReportsCreated           uint64    `json:"reports_created"`
	StatusTransitions        uint64    `json:"status_transitions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
